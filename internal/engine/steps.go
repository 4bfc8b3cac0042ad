package engine

// StepKind names the provisioning and teardown actions the executor tracks.
type StepKind string

const (
	StepCreateNetwork   StepKind = "create-network"
	StepAcquireImage    StepKind = "acquire-image"
	StepCreateContainer StepKind = "create-container"
	StepStartContainer  StepKind = "start-container"
	StepWaitHealthy     StepKind = "wait-healthy"
	StepRunMain         StepKind = "run-main"
	StepStopContainer   StepKind = "stop-container"
	StepRemoveContainer StepKind = "remove-container"
	StepRemoveNetwork   StepKind = "remove-network"
)

// StepState is the per-step state machine: Pending -> Running ->
// {Succeeded, Failed}. Skipped marks steps abandoned after a failure or an
// interruption before they started.
type StepState int

const (
	StepPending StepState = iota
	StepRunning
	StepSucceeded
	StepFailed
	StepSkipped
)

func (s StepState) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepSucceeded:
		return "succeeded"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// networkNode is the logical node name for the task network's steps.
const networkNode = "task network"

// Step is one atomic unit of provisioning work. A step becomes eligible once
// every step it depends on has succeeded.
type Step struct {
	ID    string
	Kind  StepKind
	Node  string
	State StepState

	// remaining counts unmet dependencies; dependents lists steps unlocked
	// when this one succeeds. Both are owned by the session's mutex.
	remaining  int
	dependents []string
}

func stepID(kind StepKind, node string) string {
	return string(kind) + ":" + node
}

// buildProvisioningSteps turns the graph into the concurrently schedulable
// step set. The network is created before any container; a container's start
// waits for every dependency to report ready (healthy, or merely running when
// it has no health check); the main container's start and stream are one
// atomic step.
func buildProvisioningSteps(graph *Graph) map[string]*Step {
	steps := make(map[string]*Step)

	add := func(kind StepKind, node string, deps ...string) *Step {
		step := &Step{
			ID:   stepID(kind, node),
			Kind: kind,
			Node: node,
		}
		steps[step.ID] = step
		for _, dep := range deps {
			step.remaining++
			steps[dep].dependents = append(steps[dep].dependents, step.ID)
		}
		return step
	}

	readiness := func(name string) string {
		if graph.Containers[name].Container.HealthCheck != nil {
			return stepID(StepWaitHealthy, name)
		}
		return stepID(StepStartContainer, name)
	}

	add(StepCreateNetwork, networkNode)

	names := graph.ContainerNames()

	// Creation steps first so readiness edges can refer to any container.
	for _, name := range names {
		add(StepAcquireImage, name)
		add(StepCreateContainer, name,
			stepID(StepAcquireImage, name),
			stepID(StepCreateNetwork, networkNode))
	}

	for _, name := range names {
		if name == graph.Main {
			continue
		}
		add(StepStartContainer, name, stepID(StepCreateContainer, name))
		if graph.Containers[name].Container.HealthCheck != nil {
			add(StepWaitHealthy, name, stepID(StepStartContainer, name))
		}
	}

	// Start-dependency edges are added after every start step exists.
	for _, name := range names {
		if name == graph.Main {
			continue
		}
		start := steps[stepID(StepStartContainer, name)]
		for _, dependency := range graph.Containers[name].DependsOn {
			ready := steps[readiness(dependency)]
			start.remaining++
			ready.dependents = append(ready.dependents, start.ID)
		}
	}

	main := add(StepRunMain, graph.Main, stepID(StepCreateContainer, graph.Main))
	for _, dependency := range graph.Containers[graph.Main].DependsOn {
		ready := steps[readiness(dependency)]
		main.remaining++
		ready.dependents = append(ready.dependents, main.ID)
	}

	return steps
}
