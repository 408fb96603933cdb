package tasks

import (
	"context"

	"github.com/vk/taskrig/internal/shell"
	"github.com/vk/taskrig/internal/task"
)

// Command runs a fixed argv. It is the concrete type behind pipeline-declared
// tasks; the name parameterizes several instances of the same program as
// distinct nodes.
type Command struct {
	Name     string
	Argv     []string
	Dir      string
	Env      map[string]string
	Requires []task.Task
}

func (c *Command) Label() string { return c.Name }

func (c *Command) RequiredTasks() []task.Task { return c.Requires }

func (c *Command) Run(ctx context.Context, rc *task.RunContext) error {
	dir := c.Dir
	if dir == "" {
		dir = rc.ProjectRoot
	}
	env := make(map[string]string, len(rc.Env)+len(c.Env))
	for key, value := range rc.Env {
		env[key] = value
	}
	for key, value := range c.Env {
		env[key] = value
	}
	return shell.Run(ctx, shell.Command{Argv: c.Argv, Dir: dir, Env: env})
}
