package engine

import (
	"strings"

	"github.com/exustash/batect/pkg/types"
)

// ScheduledTask pairs a task with the run options its position in the order
// dictates. Every task except the last is a prerequisite: its cleanup after
// success is forced on regardless of the user's preference.
type ScheduledTask struct {
	Task    *types.Task
	Options types.RunOptions
}

// ResolveTaskOrder expands the requested task's prerequisite chain into a
// flat, deduplicated, dependency-respecting run order: each task's
// prerequisites appear strictly before it, the requested task last, and a
// task referenced transitively more than once appears exactly once, at the
// earliest position its dependents require.
func ResolveTaskOrder(catalog map[string]*types.Task, requested string, opts types.RunOptions) ([]ScheduledTask, error) {
	root, ok := catalog[requested]
	if !ok {
		return nil, NewConfigError("task %q does not exist", requested)
	}

	var order []*types.Task
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var path []string

	var visit func(task *types.Task) error
	visit = func(task *types.Task) error {
		if visited[task.Name] {
			return nil
		}
		if onPath[task.Name] {
			return NewConfigError("there is a dependency cycle between tasks: %s", formatCycle(path, task.Name))
		}

		onPath[task.Name] = true
		path = append(path, task.Name)

		for _, name := range task.Prerequisites {
			prerequisite, ok := catalog[name]
			if !ok {
				return NewConfigError("task %q depends on task %q, which does not exist", task.Name, name)
			}
			if err := visit(prerequisite); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		onPath[task.Name] = false
		visited[task.Name] = true
		order = append(order, task)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}

	scheduled := make([]ScheduledTask, len(order))
	for i, task := range order {
		options := opts.ForPrerequisite()
		if i == len(order)-1 {
			options = opts
		}
		scheduled[i] = ScheduledTask{Task: task, Options: options}
	}

	return scheduled, nil
}

// formatCycle renders the chain from the first occurrence of the repeated
// task through to its repetition, e.g. "build -> test -> build".
func formatCycle(path []string, repeated string) string {
	start := 0
	for i, name := range path {
		if name == repeated {
			start = i
			break
		}
	}

	chain := append(append([]string{}, path[start:]...), repeated)
	return strings.Join(chain, " -> ")
}
