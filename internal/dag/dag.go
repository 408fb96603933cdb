package dag

import (
	"context"
	"fmt"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/task"
)

// Plan expands the requested roots into the full required task set, validates
// that the requires-relation is acyclic, and returns the batch in execution
// order.
func Plan(ctx context.Context, roots []task.Task) ([]task.Task, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Plan: starting graph expansion.", "root_count", len(roots))

	all := Expand(ctx, roots)
	logger.Debug("Plan: expansion complete.", "task_count", len(all))

	if err := detectCycles(all); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Plan: cycle detection passed.")

	batch := Order(roots, all)
	logger.Debug("Plan: sequencing complete.", "batch", Labels(batch))
	return batch, nil
}

// Expand walks the requires-relation outward from the given roots and returns
// every reachable task exactly once, keyed by label. The first instance seen
// for a label is the canonical one; later instances with the same label are
// ignored. The worklist is keyed by label, so expansion terminates even on
// cyclic input.
func Expand(ctx context.Context, roots []task.Task) map[string]task.Task {
	all := make(map[string]task.Task)
	worklist := append([]task.Task(nil), roots...)
	for len(worklist) > 0 {
		t := worklist[0]
		worklist = worklist[1:]
		if _, ok := all[t.Label()]; ok {
			continue
		}
		all[t.Label()] = t
		worklist = append(worklist, t.RequiredTasks()...)
	}
	return all
}

// Order produces the execution order for an already-expanded task set: a
// depth-first postorder from each root, visiting roots in the order they were
// requested. Every prerequisite lands strictly before its dependents and each
// task appears exactly once. Callers must have validated the set with
// detectCycles first; Order assumes a DAG.
func Order(roots []task.Task, all map[string]task.Task) []task.Task {
	batch := make([]task.Task, 0, len(all))
	added := make(map[string]bool, len(all))

	var add func(t task.Task)
	add = func(t task.Task) {
		t = all[t.Label()] // always sequence the canonical instance
		if added[t.Label()] {
			return
		}
		for _, req := range t.RequiredTasks() {
			add(req)
		}
		added[t.Label()] = true
		batch = append(batch, t)
	}

	for _, root := range roots {
		add(root)
	}
	return batch
}

// detectCycles checks the requires-relation for cycles using DFS with
// visiting/visited sets and fails fast naming the offending label.
func detectCycles(all map[string]task.Task) error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(t task.Task) error
	visit = func(t task.Task) error {
		visiting[t.Label()] = true
		for _, req := range t.RequiredTasks() {
			canonical := all[req.Label()]
			if visiting[canonical.Label()] {
				return fmt.Errorf("cycle detected involving '%s'", canonical.Label())
			}
			if !visited[canonical.Label()] {
				if err := visit(canonical); err != nil {
					return err
				}
			}
		}
		delete(visiting, t.Label())
		visited[t.Label()] = true
		return nil
	}

	for _, t := range all {
		if !visited[t.Label()] {
			if err := visit(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Labels returns the labels of the given tasks in the same order.
func Labels(tasks []task.Task) []string {
	labels := make([]string, len(tasks))
	for i, t := range tasks {
		labels[i] = t.Label()
	}
	return labels
}
