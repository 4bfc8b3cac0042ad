package engine

import (
	"sort"

	"github.com/gammazero/toposort"

	"github.com/exustash/batect/pkg/types"
)

// GraphNode is one container in a task's dependency graph, carrying its
// resolved invocation and the containers that must be ready before it starts.
type GraphNode struct {
	Container  *types.Container
	Invocation Invocation
	DependsOn  []string
}

// Graph is the per-task DAG of containers and their readiness ordering. The
// task network is implicit: it is created before any container and removed
// after all of them. Built fresh per task invocation.
type Graph struct {
	Task       *types.Task
	Main       string
	Containers map[string]*GraphNode
}

// BuildGraph translates a task's container declarations into a validated
// dependency graph. It fails fast, before any provisioning: unknown
// containers, dependency cycles and command-resolution problems are all
// configuration errors.
func BuildGraph(containers map[string]*types.Container, task *types.Task, opts types.RunOptions) (*Graph, error) {
	if task.Run == nil || task.Run.Container == "" {
		return nil, NewConfigError("task %q does not define a container to run", task.Name)
	}

	main, ok := containers[task.Run.Container]
	if !ok {
		return nil, NewConfigError("task %q refers to unknown container %q", task.Name, task.Run.Container)
	}

	graph := &Graph{
		Task:       task,
		Main:       main.Name,
		Containers: make(map[string]*GraphNode),
	}

	// Collect every container reachable from the run container.
	pending := []*types.Container{main}
	for len(pending) > 0 {
		container := pending[0]
		pending = pending[1:]

		if _, seen := graph.Containers[container.Name]; seen {
			continue
		}

		invocation, err := ResolveInvocation(container, task, opts)
		if err != nil {
			return nil, err
		}

		node := &GraphNode{
			Container:  container,
			Invocation: invocation,
			DependsOn:  append([]string(nil), container.Dependencies...),
		}
		graph.Containers[container.Name] = node

		for _, name := range container.Dependencies {
			dependency, ok := containers[name]
			if !ok {
				return nil, NewConfigError("container %q depends on unknown container %q", container.Name, name)
			}
			if name == graph.Main {
				return nil, NewConfigError("container %q cannot depend on %q, the task's run container", container.Name, name)
			}
			pending = append(pending, dependency)
		}
	}

	if err := graph.validateAcyclic(); err != nil {
		return nil, err
	}

	return graph, nil
}

// validateAcyclic runs a topological sort over the readiness edges. A cycle
// is a fatal configuration error, detected before any step executes.
func (g *Graph) validateAcyclic() error {
	names := g.ContainerNames()

	var edges []toposort.Edge
	for _, name := range names {
		node := g.Containers[name]
		if len(node.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, name})
			continue
		}
		for _, dependency := range node.DependsOn {
			edges = append(edges, toposort.Edge{dependency, name})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return NewConfigError("the dependency graph for task %q contains a cycle: %v", g.Task.Name, err)
	}

	return nil
}

// ContainerNames returns the graph's container names in sorted order.
func (g *Graph) ContainerNames() []string {
	names := make([]string, 0, len(g.Containers))
	for name := range g.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
