// Package registry maps command-line verbs to the concrete root task each
// verb executes. Unknown verbs are rejected here, before any graph expansion
// happens.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/taskrig/internal/task"
)

// Registry holds the verb-to-task bindings for a single application instance.
type Registry struct {
	verbs map[string]task.Task
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{verbs: make(map[string]task.Task)}
}

// Register binds a verb to its root task. Binding a verb twice is an error:
// it means two tasks are competing for the same name.
func (r *Registry) Register(verb string, t task.Task) error {
	if _, exists := r.verbs[verb]; exists {
		return fmt.Errorf("task '%s' is already registered", verb)
	}
	r.verbs[verb] = t
	return nil
}

// Resolve maps the requested verbs to their root tasks. The first unknown
// verb aborts resolution with an error naming it and listing the known verbs.
func (r *Registry) Resolve(verbs ...string) ([]task.Task, error) {
	roots := make([]task.Task, 0, len(verbs))
	for _, verb := range verbs {
		t, ok := r.verbs[verb]
		if !ok {
			return nil, fmt.Errorf("unknown task '%s', known tasks: %s", verb, strings.Join(r.Verbs(), ", "))
		}
		roots = append(roots, t)
	}
	return roots, nil
}

// Verbs returns every registered verb in sorted order.
func (r *Registry) Verbs() []string {
	verbs := make([]string, 0, len(r.verbs))
	for verb := range r.verbs {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)
	return verbs
}
