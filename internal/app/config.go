package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds everything an App needs for one invocation.
type Config struct {
	ProjectRoot   string // project root on the local machine
	ContainerRoot string // path the project is mounted at inside containers
	UserID        string // numeric user id that should own project files after a run
	GroupID       string // numeric group id that should own project files after a run

	PipelinePath string // optional HCL file with user-defined tasks

	LogFormat   string
	LogLevel    string
	TaskTimeout time.Duration // per-task limit; 0 disables
}

// NewConfig validates and normalizes a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectRoot == "" {
		return nil, errors.New("ProjectRoot is a required configuration field and cannot be empty")
	}
	if cfg.ContainerRoot == "" {
		cfg.ContainerRoot = cfg.ProjectRoot
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format '%s': must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level '%s': must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.TaskTimeout < 0 {
		return nil, errors.New("TaskTimeout cannot be negative")
	}

	return &cfg, nil
}
