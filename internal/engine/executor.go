package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/types"
)

// DefaultParallelism bounds the worker pool executing eligible steps.
const DefaultParallelism = 8

// Executor turns a task's dependency graph into concurrently schedulable
// steps, executes them, streams the main container's I/O and drives
// teardown.
type Executor struct {
	runtime     interfaces.ContainerRuntime
	events      events.Publisher
	logger      logger.Logger
	streams     interfaces.IOStreams
	parallelism int
}

// NewExecutor creates a new executor.
func NewExecutor(runtime interfaces.ContainerRuntime, publisher events.Publisher, log logger.Logger, streams interfaces.IOStreams, parallelism int) *Executor {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Executor{
		runtime:     runtime,
		events:      publisher,
		logger:      log,
		streams:     streams,
		parallelism: parallelism,
	}
}

// Result is the terminal condition of one task invocation.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Err      error

	// TeardownErrors never change the exit code; they are surfaced so the
	// user knows manual cleanup may be required.
	TeardownErrors []error

	// LeftBehind lists resources deliberately kept because the user opted
	// out of cleanup for this outcome class.
	LeftBehind []string
}

// Execute provisions the graph, runs the main container and guarantees
// teardown under every outcome. Cancelling ctx interrupts the run: steps not
// yet started are skipped, the main stream is asked to stop, and teardown
// still runs to completion on a background context.
func (e *Executor) Execute(ctx context.Context, graph *Graph, opts types.RunOptions) Result {
	sess := newSession(graph)
	suffix := uuid.NewString()[:8]

	mainCtx, stopMain := context.WithCancel(ctx)
	defer stopMain()

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sess.interrupt()
			stopMain()
		case <-watchDone:
		}
	}()

	ready := make(chan *Step, len(sess.steps))
	var dispatchMu sync.Mutex
	outstanding := 0

	enqueue := func(steps []*Step) {
		dispatchMu.Lock()
		defer dispatchMu.Unlock()
		outstanding += len(steps)
		for _, step := range steps {
			ready <- step
		}
	}

	finish := func(unlocked []*Step) {
		dispatchMu.Lock()
		defer dispatchMu.Unlock()
		outstanding += len(unlocked)
		for _, step := range unlocked {
			ready <- step
		}
		outstanding--
		if outstanding == 0 {
			close(ready)
		}
	}

	enqueue(sess.start())

	group, _ := NewSafeGroup(context.Background(), e.logger)
	for i := 0; i < e.parallelism; i++ {
		group.Go(func() error {
			for step := range ready {
				finish(e.runStep(ctx, mainCtx, sess, graph, opts, suffix, step, stopMain))
			}
			return nil
		})
	}

	workerErr := group.Wait()
	close(watchDone)

	// The watcher races worker shutdown when cancellation itself failed the
	// last step, so record the interruption here too.
	if ctx.Err() != nil {
		sess.interrupt()
	}

	if workerErr != nil {
		// A panicking worker leaves step bookkeeping untrustworthy; tear
		// down whatever was recorded and report an engine error.
		sess.completeFailureRaw(workerErr)
	}

	outcome, exitCode, failure := sess.classify()
	teardownErrors, leftBehind := e.teardown(sess, graph, opts, outcome, exitCode)

	outcome, exitCode, failure = sess.result()
	if workerErr != nil {
		outcome = OutcomeError
		failure = workerErr
	}

	if outcome != OutcomeSuccess {
		e.events.Publish(events.Event{
			Kind:    events.TaskFailed,
			Task:    graph.Task.Name,
			Message: failure.Error(),
			Time:    time.Now(),
		})
	}

	return Result{
		Outcome:        outcome,
		ExitCode:       exitCode,
		Err:            failure,
		TeardownErrors: teardownErrors,
		LeftBehind:     leftBehind,
	}
}

// runStep executes one step and returns the steps its success unlocked.
func (e *Executor) runStep(ctx, mainCtx context.Context, sess *session, graph *Graph, opts types.RunOptions, suffix string, step *Step, stopMain context.CancelFunc) []*Step {
	if !sess.claim(step) {
		return nil
	}

	e.publishStep(events.StepStarting, graph.Task.Name, step, true)

	err := e.executeStep(ctx, mainCtx, sess, graph, opts, suffix, step)
	if err != nil {
		e.publishStep(events.StepCompleted, graph.Task.Name, step, false)
		sess.completeFailure(step, &StepError{Step: string(step.Kind), Node: step.Node, Cause: err})

		// No new provisioning starts; running steps finish naturally. Only
		// the main container's stream is asked to stop.
		stopMain()
		sess.skipPending()
		return nil
	}

	e.publishStep(events.StepCompleted, graph.Task.Name, step, true)
	return sess.completeSuccess(step)
}

func (e *Executor) executeStep(ctx, mainCtx context.Context, sess *session, graph *Graph, opts types.RunOptions, suffix string, step *Step) error {
	switch step.Kind {
	case StepCreateNetwork:
		name := fmt.Sprintf("batect-%s-%s", sanitizeName(graph.Task.Name), suffix)
		id, err := e.runtime.CreateNetwork(ctx, name)
		if err != nil {
			return err
		}
		sess.recordNetwork(id)
		return nil

	case StepAcquireImage:
		node := graph.Containers[step.Node]
		return e.runtime.AcquireImage(ctx, imageSpec(node.Container, suffix))

	case StepCreateContainer:
		node := graph.Containers[step.Node]
		spec := containerSpec(node, graph, opts, suffix, sess.runtimeID(networkNode))
		id, err := e.runtime.CreateContainer(ctx, spec)
		if err != nil {
			return err
		}
		sess.recordContainer(step.Node, id)
		return nil

	case StepStartContainer:
		if err := e.runtime.StartContainer(ctx, sess.runtimeID(step.Node)); err != nil {
			return err
		}
		sess.markStarted(step.Node)
		return nil

	case StepWaitHealthy:
		node := graph.Containers[step.Node]
		if err := waitForHealthy(ctx, e.runtime, sess.runtimeID(step.Node), node.Container.HealthCheck); err != nil {
			return err
		}
		e.events.Publish(events.Event{
			Kind: events.ContainerBecameHealthy,
			Task: graph.Task.Name,
			Node: step.Node,
			Time: time.Now(),
		})
		return nil

	case StepRunMain:
		return e.runMain(mainCtx, sess, graph, step)

	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

// runMain starts the main container with the session streams attached and
// blocks until the stream reports the container has exited. The container's
// exit code becomes the task's result whatever its value; a non-zero code is
// the task's answer, not an engine failure.
func (e *Executor) runMain(mainCtx context.Context, sess *session, graph *Graph, step *Step) error {
	id := sess.runtimeID(step.Node)
	sess.markStarted(step.Node)

	code, err := e.runtime.AttachIO(mainCtx, id, e.streams)
	if err != nil {
		if mainCtx.Err() != nil {
			return mainCtx.Err()
		}
		return err
	}

	sess.setExitCode(code)
	e.events.Publish(events.Event{
		Kind:     events.ContainerExited,
		Task:     graph.Task.Name,
		Node:     step.Node,
		ExitCode: code,
		Time:     time.Now(),
	})
	return nil
}

// teardown removes every recorded resource in reverse creation order, unless
// the user opted out of cleanup for this outcome class. Teardown is
// best-effort and never cancellable: failures are collected and reported but
// never block subsequent teardown steps.
func (e *Executor) teardown(sess *session, graph *Graph, opts types.RunOptions, outcome Outcome, exitCode int) (teardownErrors []error, leftBehind []string) {
	plan := sess.teardownPlan()
	if len(plan) == 0 {
		return nil, nil
	}

	succeeded := outcome == OutcomeSuccess && exitCode == 0
	cleanup := opts.CleanupAfterFailure
	if succeeded {
		cleanup = opts.CleanupAfterSuccess
	}

	if cleanup == types.CleanupDisabled {
		for _, r := range plan {
			leftBehind = append(leftBehind, fmt.Sprintf("%s (%s)", r.node, r.id))
		}
		e.logger.Warn("Cleanup is disabled, resources were left behind",
			logger.WithField("resources", strings.Join(leftBehind, ", ")))
		return nil, leftBehind
	}

	ctx := context.Background()
	task := graph.Task.Name

	attempt := func(kind StepKind, node string, fn func() error) {
		step := &Step{ID: stepID(kind, node), Kind: kind, Node: node, State: StepRunning}
		e.publishStep(events.StepStarting, task, step, true)
		if err := fn(); err != nil {
			e.publishStep(events.StepCompleted, task, step, false)
			tde := &TeardownError{Step: string(kind), Node: node, Cause: err}
			teardownErrors = append(teardownErrors, tde)
			e.logger.Warn("Teardown step failed, manual cleanup may be required",
				logger.WithField("step", step.ID),
				logger.WithField("error", err))
			return
		}
		e.publishStep(events.StepCompleted, task, step, true)
	}

	for _, r := range plan {
		switch r.kind {
		case resourceContainer:
			if r.started {
				id := r.id
				attempt(StepStopContainer, r.node, func() error {
					return e.runtime.StopContainer(ctx, id)
				})
			}
			id := r.id
			attempt(StepRemoveContainer, r.node, func() error {
				return e.runtime.RemoveContainer(ctx, id)
			})

		case resourceNetwork:
			id := r.id
			attempt(StepRemoveNetwork, r.node, func() error {
				return e.runtime.RemoveNetwork(ctx, id)
			})
		}
	}

	return teardownErrors, nil
}

func (e *Executor) publishStep(kind events.Kind, task string, step *Step, succeeded bool) {
	e.events.Publish(events.Event{
		Kind:      kind,
		Task:      task,
		Step:      step.ID,
		Node:      step.Node,
		Succeeded: succeeded,
		Time:      time.Now(),
	})
}

func imageSpec(container *types.Container, suffix string) interfaces.ImageSpec {
	if container.BuildDirectory != "" {
		return interfaces.ImageSpec{
			BuildDirectory: container.BuildDirectory,
			Tag:            builtImageTag(container.Name, suffix),
		}
	}
	return interfaces.ImageSpec{Image: container.Image}
}

func containerSpec(node *GraphNode, graph *Graph, opts types.RunOptions, suffix, networkID string) interfaces.ContainerSpec {
	container := node.Container

	image := container.Image
	if container.BuildDirectory != "" {
		image = builtImageTag(container.Name, suffix)
	}

	volumes := make([]string, 0, len(container.Volumes))
	for _, mount := range container.Volumes {
		volumes = append(volumes, mount.String())
	}
	ports := make([]string, 0, len(container.Ports))
	for _, port := range container.Ports {
		ports = append(ports, port.String())
	}

	return interfaces.ContainerSpec{
		Name:        fmt.Sprintf("batect-%s-%s", sanitizeName(container.Name), suffix),
		Image:       image,
		Command:     node.Invocation.Command,
		Entrypoint:  node.Invocation.Entrypoint,
		Environment: container.Environment,
		WorkingDir:  container.WorkingDirectory,
		Volumes:     volumes,
		Ports:       ports,
		NetworkID:   networkID,
		Alias:       container.Name,
		HealthCheck: container.HealthCheck,
		Attached:    container.Name == graph.Main && opts.Attached,
	}
}

func builtImageTag(containerName, suffix string) string {
	return fmt.Sprintf("batect-%s-%s", sanitizeName(containerName), suffix)
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
}
