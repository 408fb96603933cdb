// Package dag expands a requested set of root tasks into the full set of
// transitively required tasks, validates that the requires-relation is
// acyclic, and linearizes the set so every prerequisite precedes its
// dependents.
//
// Tasks are keyed by label throughout: a task reachable through several paths
// is discovered once, and the first instance seen for a label is the
// canonical one.
package dag
