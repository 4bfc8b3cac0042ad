// Package events carries the observational event stream emitted by the
// execution engine. Consumers (UI, telemetry) process asynchronously and can
// never stall provisioning.
package events

import "time"

// Kind identifies what happened.
type Kind string

const (
	StepStarting           Kind = "step-starting"
	StepCompleted          Kind = "step-completed"
	ContainerBecameHealthy Kind = "container-became-healthy"
	ContainerExited        Kind = "container-exited"
	TaskFailed             Kind = "task-failed"
	TaskSeparator          Kind = "task-separator"
)

// Event is a single entry in the ordered stream. Fields beyond Kind, Task
// and Time are populated only where they apply.
type Event struct {
	Kind Kind
	Task string

	// Step names the provisioning or teardown step for step events.
	Step string

	// Node names the container or network the step targets.
	Node string

	Succeeded bool
	ExitCode  int
	Message   string

	Time time.Time
}

// Publisher is the engine-facing side of the stream.
type Publisher interface {
	Publish(event Event)
}
