// Package executor runs a planned batch of tasks strictly one at a time, in
// order, stopping at the first failure. Concurrency, if any, lives inside
// individual tasks and is opaque to the executor.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/dag"
	"github.com/vk/taskrig/internal/report"
	"github.com/vk/taskrig/internal/task"
)

// Executor runs one batch. The zero value runs tasks with no time limit.
type Executor struct {
	// TaskTimeout is the per-task time limit. Zero disables the limit.
	TaskTimeout time.Duration
}

// Run executes the batch in order, handing the same RunContext to every task.
// Before each task it emits a progress notice; the first task error aborts
// the batch and is returned wrapped with the task's label. Already-completed
// effects are not rolled back and nothing is retried.
//
// Cancellation is checked between tasks, never mid-task. The returned entries
// cover every task that was started, even when the batch fails.
func (e *Executor) Run(ctx context.Context, batch []task.Task, rc *task.RunContext) ([]report.Entry, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Will execute the following tasks:", "tasks", dag.Labels(batch))

	entries := make([]report.Entry, 0, len(batch))
	for _, t := range batch {
		if err := ctx.Err(); err != nil {
			return entries, fmt.Errorf("batch canceled before '%s': %w", t.Label(), err)
		}

		logger.Info("Starting task.", "task", t.Label())
		startedAt := time.Now()
		err := e.runOne(ctx, t, rc)
		finishedAt := time.Now()

		entries = append(entries, report.Entry{
			Task:       t.Label(),
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   finishedAt.Sub(startedAt),
		})

		if err != nil {
			return entries, fmt.Errorf("task '%s' failed: %w", t.Label(), err)
		}
		logger.Debug("Task finished.", "task", t.Label(), "duration", finishedAt.Sub(startedAt))
	}
	return entries, nil
}

// runOne invokes a single task, applying the per-task timeout when one is
// configured. A task that outlives its deadline is abandoned; its goroutine
// keeps the buffered channel from leaking a blocked sender.
func (e *Executor) runOne(ctx context.Context, t task.Task, rc *task.RunContext) error {
	if e.TaskTimeout <= 0 {
		return t.Run(ctx, rc)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.TaskTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- t.Run(runCtx, rc) }()

	select {
	case err := <-done:
		return err
	case <-runCtx.Done():
		return fmt.Errorf("timed out after %s: %w", e.TaskTimeout, runCtx.Err())
	}
}
