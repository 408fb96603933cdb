package dag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskrig/internal/task"
)

// stubTask is a minimal task for graph tests. Run is never called here.
type stubTask struct {
	label    string
	requires []task.Task
}

func (s *stubTask) Label() string              { return s.label }
func (s *stubTask) RequiredTasks() []task.Task { return s.requires }
func (s *stubTask) Run(ctx context.Context, rc *task.RunContext) error {
	return fmt.Errorf("stub task '%s' must not run", s.label)
}

func stub(label string, requires ...task.Task) *stubTask {
	return &stubTask{label: label, requires: requires}
}

// fixture builds a nine-task graph exercising shared prerequisites, diamond
// shapes, and independent branches.
func fixture() map[string]*stubTask {
	t1 := stub("task_1")
	t2 := stub("task_2")
	t3 := stub("task_3", t2, t1)
	t4 := stub("task_4", t1, t3)
	t5 := stub("task_5")
	t6 := stub("task_6", t5)
	t7 := stub("task_7", t5)
	t8 := stub("task_8", t2, t7)
	t9 := stub("task_9", t8, t4)
	all := map[string]*stubTask{}
	for _, t := range []*stubTask{t1, t2, t3, t4, t5, t6, t7, t8, t9} {
		all[t.label] = t
	}
	return all
}

// assertPrerequisitesFirst verifies the core sequencing invariant: every
// prerequisite appears strictly before its dependent.
func assertPrerequisitesFirst(t *testing.T, batch []task.Task) {
	t.Helper()
	position := make(map[string]int, len(batch))
	for i, tk := range batch {
		position[tk.Label()] = i
	}
	for _, tk := range batch {
		for _, req := range tk.RequiredTasks() {
			reqPos, ok := position[req.Label()]
			require.True(t, ok, "prerequisite '%s' of '%s' missing from batch", req.Label(), tk.Label())
			assert.Less(t, reqPos, position[tk.Label()],
				"'%s' must precede '%s'", req.Label(), tk.Label())
		}
	}
}

func TestExpand(t *testing.T) {
	t.Run("discovers the full transitive set exactly once", func(t *testing.T) {
		all := fixture()
		set := Expand(context.Background(), []task.Task{all["task_9"]})
		assert.Len(t, set, 8) // everything except the independent task_6
		for _, label := range []string{"task_1", "task_2", "task_3", "task_4", "task_5", "task_7", "task_8", "task_9"} {
			assert.Contains(t, set, label)
		}
		assert.NotContains(t, set, "task_6")
	})

	t.Run("is deterministic across repeated calls", func(t *testing.T) {
		all := fixture()
		roots := []task.Task{all["task_4"], all["task_8"]}
		first := Expand(context.Background(), roots)
		second := Expand(context.Background(), roots)
		require.Len(t, second, len(first))
		for label := range first {
			assert.Contains(t, second, label)
		}
	})

	t.Run("first instance wins for a shared label", func(t *testing.T) {
		original := stub("shared")
		duplicate := stub("shared")
		set := Expand(context.Background(), []task.Task{original, duplicate})
		require.Len(t, set, 1)
		assert.Same(t, original, set["shared"].(*stubTask))
	})

	t.Run("terminates on cyclic input", func(t *testing.T) {
		a := stub("a")
		b := stub("b", a)
		a.requires = []task.Task{b}
		set := Expand(context.Background(), []task.Task{a})
		assert.Len(t, set, 2)
	})
}

func TestPlan(t *testing.T) {
	// Expected orders for the fixture graph; postorder from each root in
	// request order makes them fully deterministic.
	cases := []struct {
		requested []string
		expected  []string
	}{
		{[]string{"task_1"}, []string{"task_1"}},
		{[]string{"task_5", "task_6"}, []string{"task_5", "task_6"}},
		{[]string{"task_6", "task_5"}, []string{"task_5", "task_6"}},
		{[]string{"task_3", "task_4"}, []string{"task_2", "task_1", "task_3", "task_4"}},
		{[]string{"task_4", "task_3"}, []string{"task_1", "task_2", "task_3", "task_4"}},
		{
			[]string{"task_3", "task_5", "task_6", "task_7"},
			[]string{"task_2", "task_1", "task_3", "task_5", "task_6", "task_7"},
		},
		{
			[]string{"task_7", "task_6", "task_3", "task_5"},
			[]string{"task_5", "task_7", "task_6", "task_2", "task_1", "task_3"},
		},
		{
			[]string{"task_4", "task_8"},
			[]string{"task_1", "task_2", "task_3", "task_4", "task_5", "task_7", "task_8"},
		},
		{
			[]string{"task_8", "task_4"},
			[]string{"task_2", "task_5", "task_7", "task_8", "task_1", "task_3", "task_4"},
		},
		{
			[]string{"task_9"},
			[]string{"task_2", "task_5", "task_7", "task_8", "task_1", "task_3", "task_4", "task_9"},
		},
		{
			[]string{"task_4", "task_9"},
			[]string{"task_1", "task_2", "task_3", "task_4", "task_5", "task_7", "task_8", "task_9"},
		},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v", tc.requested), func(t *testing.T) {
			all := fixture()
			roots := make([]task.Task, len(tc.requested))
			for i, label := range tc.requested {
				roots[i] = all[label]
			}
			batch, err := Plan(context.Background(), roots)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, Labels(batch))
			assertPrerequisitesFirst(t, batch)
		})
	}

	t.Run("linear chain runs prerequisites first", func(t *testing.T) {
		a := stub("a")
		b := stub("b", a)
		c := stub("c", a, b)
		batch, err := Plan(context.Background(), []task.Task{c})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, Labels(batch))
	})

	t.Run("shared prerequisite runs once before both dependents", func(t *testing.T) {
		y := stub("y")
		x := stub("x", y)
		z := stub("z", y)
		batch, err := Plan(context.Background(), []task.Task{x, z})
		require.NoError(t, err)
		require.Len(t, batch, 3)
		assert.Equal(t, "y", batch[0].Label())
		assertPrerequisitesFirst(t, batch)
	})

	t.Run("root requested twice executes once", func(t *testing.T) {
		a := stub("a")
		batch, err := Plan(context.Background(), []task.Task{a, a})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, Labels(batch))
	})

	t.Run("self-requirement is rejected", func(t *testing.T) {
		a := stub("a")
		a.requires = []task.Task{a}
		_, err := Plan(context.Background(), []task.Task{a})
		require.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected involving 'a'")
	})

	t.Run("direct cycle is rejected", func(t *testing.T) {
		a := stub("a")
		b := stub("b", a)
		a.requires = []task.Task{b}
		_, err := Plan(context.Background(), []task.Task{a})
		require.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")
	})

	t.Run("longer cycle is rejected", func(t *testing.T) {
		a := stub("a")
		b := stub("b", a)
		c := stub("c", b)
		d := stub("d", c)
		a.requires = []task.Task{d}
		_, err := Plan(context.Background(), []task.Task{a})
		require.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")
	})
}
