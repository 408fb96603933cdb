// Package app wires the registry, pipeline loader, planner, and executor
// together for a single CLI invocation and owns the post-run ownership
// cleanup.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/dag"
	"github.com/vk/taskrig/internal/executor"
	"github.com/vk/taskrig/internal/pipeline"
	"github.com/vk/taskrig/internal/registry"
	"github.com/vk/taskrig/internal/report"
	"github.com/vk/taskrig/internal/task"
	"github.com/vk/taskrig/internal/tasks"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	runCtx   *task.RunContext
}

// NewApp is the constructor for the main application. It builds an isolated
// logger, the shared run context, and a registry holding the built-in tasks
// plus any pipeline-defined ones.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	runCtx := &task.RunContext{
		ProjectRoot:   cfg.ProjectRoot,
		ContainerRoot: cfg.ContainerRoot,
		UserID:        cfg.UserID,
		GroupID:       cfg.GroupID,
		Env: map[string]string{
			"PROJECT_ROOT":           cfg.ProjectRoot,
			"CONTAINER_PROJECT_ROOT": cfg.ContainerRoot,
			"LOCAL_USER_ID":          cfg.UserID,
			"LOCAL_GROUP_ID":         cfg.GroupID,
		},
	}

	builtins := map[string]task.Task{
		"clean": tasks.Clean{},
	}
	reg := registry.New()
	for verb, t := range builtins {
		if err := reg.Register(verb, t); err != nil {
			return nil, err
		}
	}
	logger.Debug("Built-in tasks registered.", "count", len(builtins))

	if cfg.PipelinePath != "" {
		loaded, err := pipeline.Load(ctx, cfg.PipelinePath, runCtx, builtins)
		if err != nil {
			return nil, fmt.Errorf("failed to load pipeline: %w", err)
		}
		for _, t := range loaded {
			if err := reg.Register(t.Label(), t); err != nil {
				return nil, err
			}
		}
		logger.Debug("Pipeline tasks registered.", "count", len(loaded))
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		runCtx:   runCtx,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Run resolves the requested verbs, plans the batch, executes it, and writes
// the run report on success. Task failures propagate unswallowed; the CLI
// layer owns logging them and the exit code.
func (a *App) Run(ctx context.Context, verbs []string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	roots, err := a.registry.Resolve(verbs...)
	if err != nil {
		return err
	}
	batch, err := dag.Plan(ctx, roots)
	if err != nil {
		return err
	}

	exec := &executor.Executor{TaskTimeout: a.config.TaskTimeout}
	entries, err := exec.Run(ctx, batch, a.runCtx)
	if err != nil {
		return err
	}

	path := report.Path(a.config.ProjectRoot)
	if err := report.New(entries).Write(path); err != nil {
		return fmt.Errorf("batch succeeded but writing the run report failed: %w", err)
	}
	a.logger.Info("Batch complete.", "task_count", len(entries), "report", path)
	return nil
}

// Plan returns the execution order for the requested verbs without running
// anything.
func (a *App) Plan(ctx context.Context, verbs []string) ([]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	roots, err := a.registry.Resolve(verbs...)
	if err != nil {
		return nil, err
	}
	batch, err := dag.Plan(ctx, roots)
	if err != nil {
		return nil, err
	}
	return dag.Labels(batch), nil
}
