package engine

import (
	"sync"
)

// SessionState is the per-invocation state machine: NotStarted ->
// Provisioning -> RunningMain -> TearingDown -> Finished.
type SessionState int

const (
	SessionNotStarted SessionState = iota
	SessionProvisioning
	SessionRunningMain
	SessionTearingDown
	SessionFinished
)

// Outcome classifies a finished session.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeError
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "error"
	}
}

type resourceKind int

const (
	resourceNetwork resourceKind = iota
	resourceContainer
)

// resource records something actually created during this invocation, in
// creation order. Teardown is computed from these records, never from the
// intended full graph.
type resource struct {
	kind    resourceKind
	node    string
	id      string
	started bool
}

// session is the mutable state for one task invocation: the step-state
// table, the runtime identifier map and the recorded resources. All
// mutations, including the "recompute newly eligible steps" decision, happen
// inside its single mutex. Created fresh per invocation and discarded after
// teardown.
type session struct {
	mu sync.Mutex

	state     SessionState
	steps     map[string]*Step
	resources []*resource
	ids       map[string]string

	exitCode    int
	failure     error
	interrupted bool
}

func newSession(graph *Graph) *session {
	return &session{
		state:    SessionNotStarted,
		steps:    buildProvisioningSteps(graph),
		ids:      make(map[string]string),
		exitCode: -1,
	}
}

// start transitions to Provisioning and returns the initially eligible steps.
func (s *session) start() []*Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SessionProvisioning
	return s.eligibleLocked()
}

func (s *session) eligibleLocked() []*Step {
	var eligible []*Step
	for _, step := range s.steps {
		if step.State == StepPending && step.remaining == 0 {
			eligible = append(eligible, step)
		}
	}
	return eligible
}

// claim moves a step from Pending to Running. It refuses (marking the step
// Skipped) once the session has failed or been interrupted: no new
// provisioning starts after the first failure.
func (s *session) claim(step *Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if step.State != StepPending {
		return false
	}
	if s.failure != nil || s.interrupted {
		step.State = StepSkipped
		return false
	}

	step.State = StepRunning
	if step.Kind == StepRunMain {
		s.state = SessionRunningMain
	}
	return true
}

// completeSuccess marks the step Succeeded and returns the steps it made
// eligible. Nothing becomes eligible once the session has failed.
func (s *session) completeSuccess(step *Step) []*Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	step.State = StepSucceeded

	if s.failure != nil || s.interrupted {
		return nil
	}

	var unlocked []*Step
	for _, id := range step.dependents {
		dependent := s.steps[id]
		dependent.remaining--
		if dependent.remaining == 0 && dependent.State == StepPending {
			unlocked = append(unlocked, dependent)
		}
	}
	return unlocked
}

// completeFailure marks the step Failed and records the session's failure.
// The first failure wins.
func (s *session) completeFailure(step *Step, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step.State = StepFailed
	if s.failure == nil {
		s.failure = err
	}
}

// interrupt flags the session so steps not yet started are skipped rather
// than started.
func (s *session) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interrupted = true
}

// skipPending abandons every step that never started.
func (s *session) skipPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, step := range s.steps {
		if step.State == StepPending {
			step.State = StepSkipped
		}
	}
}

func (s *session) recordNetwork(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[networkNode] = id
	s.resources = append(s.resources, &resource{kind: resourceNetwork, node: networkNode, id: id})
}

func (s *session) recordContainer(node, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[node] = id
	s.resources = append(s.resources, &resource{kind: resourceContainer, node: node, id: id})
}

func (s *session) markStarted(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.resources {
		if r.kind == resourceContainer && r.node == node {
			r.started = true
		}
	}
}

func (s *session) runtimeID(node string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ids[node]
}

func (s *session) setExitCode(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exitCode = code
}

// teardownPlan returns the recorded resources in reverse creation order.
func (s *session) teardownPlan() []resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SessionTearingDown

	plan := make([]resource, 0, len(s.resources))
	for i := len(s.resources) - 1; i >= 0; i-- {
		plan = append(plan, *s.resources[i])
	}
	return plan
}

// completeFailureRaw records a session-level failure not tied to any step,
// such as a panicking worker. The first failure still wins.
func (s *session) completeFailureRaw(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure == nil {
		s.failure = err
	}
}

// classify reads the session's current condition without declaring it
// finished. Teardown consults this to pick the cleanup class.
func (s *session) classify() (Outcome, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.outcomeLocked()
}

// result reads the session's terminal condition.
func (s *session) result() (Outcome, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SessionFinished
	return s.outcomeLocked()
}

func (s *session) outcomeLocked() (Outcome, int, error) {
	switch {
	case s.interrupted:
		return OutcomeInterrupted, -1, ErrInterrupted
	case s.failure != nil:
		return OutcomeFailure, -1, s.failure
	default:
		return OutcomeSuccess, s.exitCode, nil
	}
}
