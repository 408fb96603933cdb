// Package task defines the contract every unit of work must satisfy and the
// shared context handed to each one during a batch.
package task

import (
	"context"
	"path/filepath"
)

// Task is a named unit of work with declared prerequisites.
//
// The label is the task's identity: two instances with the same label are the
// same node during graph expansion, and the first instance discovered wins.
// RequiredTasks must be a pure function of the task's configuration; it is
// called repeatedly while the graph is expanded and validated. Run performs
// the task's side effects and reports failure through its error return.
type Task interface {
	// Label returns the stable, unique identity of the task.
	Label() string

	// RequiredTasks returns the tasks that must complete before this one
	// may run. The result must be identical on every call.
	RequiredTasks() []Task

	// Run performs the task's work. The RunContext is shared by every task
	// in the batch and must not be mutated.
	Run(ctx context.Context, rc *RunContext) error
}

// RunContext bundles the per-invocation values handed identically to every
// task in a batch. It is constructed once by the caller and never mutated
// mid-batch.
type RunContext struct {
	// ProjectRoot is the project root on the local machine.
	ProjectRoot string

	// ContainerRoot is the path the project is mounted at inside
	// containers. Equal to ProjectRoot when no container is involved.
	ContainerRoot string

	// UserID and GroupID identify the local user that should own project
	// files once the batch finishes.
	UserID  string
	GroupID string

	// Env is a prepared environment mapping for subprocess invocation.
	Env map[string]string
}

// BuildDir returns the build output directory for this invocation. Task
// artifacts, including the run report, live under it.
func (rc *RunContext) BuildDir() string {
	return filepath.Join(rc.ProjectRoot, "build")
}
