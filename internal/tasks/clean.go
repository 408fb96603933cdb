// Package tasks holds the units of work shipped with the binary: the clean
// task, the generic command task backing pipeline definitions, and the
// fetch-with-retry task.
package tasks

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/task"
)

// Clean removes the build output directory so the next batch starts from a
// clean slate. It has no prerequisites.
type Clean struct{}

func (Clean) Label() string { return "clean" }

func (Clean) RequiredTasks() []task.Task { return nil }

func (Clean) Run(ctx context.Context, rc *task.RunContext) error {
	dir := rc.BuildDir()
	ctxlog.FromContext(ctx).Info("Removing build directory.", "dir", dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove build directory %s: %w", dir, err)
	}
	return nil
}
