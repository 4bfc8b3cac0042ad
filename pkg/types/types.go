// Package types provides the configuration model shared across batect
package types

import (
	"fmt"
	"time"
)

// Reserved exit codes. Task containers own every other value.
const (
	// ExitCodeConfigError signals a configuration or resolution failure
	// detected before any container ran.
	ExitCodeConfigError = 120

	// ExitCodeEngineError signals an internal engine failure unrelated to
	// the task's own logic.
	ExitCodeEngineError = 121

	// ExitCodeInterrupted signals a user-requested cancellation.
	ExitCodeInterrupted = 130
)

// CleanupOption controls whether resources are removed after a run.
type CleanupOption string

const (
	CleanupEnabled  CleanupOption = "cleanup"
	CleanupDisabled CleanupOption = "no-cleanup"
)

// Task is a named unit of work mapped to a run container plus prerequisite
// tasks. Immutable once loaded from configuration.
type Task struct {
	Name          string                `yaml:"-"`
	Description   string                `yaml:"description,omitempty"`
	Run           *TaskRunConfiguration `yaml:"run,omitempty"`
	Prerequisites []string              `yaml:"prerequisites,omitempty"`
}

// TaskRunConfiguration overrides how the task's run container is invoked.
type TaskRunConfiguration struct {
	Container  string `yaml:"container"`
	Command    string `yaml:"command,omitempty"`
	Entrypoint string `yaml:"entrypoint,omitempty"`
}

// RunContainerName returns the name of the container whose exit code becomes
// the task's result, or "" if the task declares none.
func (t *Task) RunContainerName() string {
	if t.Run == nil {
		return ""
	}
	return t.Run.Container
}

// Container declares an image source, invocation defaults and the containers
// it depends on. Immutable once loaded from configuration.
type Container struct {
	Name             string            `yaml:"-"`
	Description      string            `yaml:"description,omitempty"`
	Image            string            `yaml:"image,omitempty"`
	BuildDirectory   string            `yaml:"build_directory,omitempty"`
	Command          string            `yaml:"command,omitempty"`
	Entrypoint       string            `yaml:"entrypoint,omitempty"`
	WorkingDirectory string            `yaml:"working_directory,omitempty"`
	Environment      map[string]string `yaml:"environment,omitempty"`
	Volumes          []VolumeMount     `yaml:"volumes,omitempty"`
	Ports            []PortMapping     `yaml:"ports,omitempty"`
	HealthCheck      *HealthCheck      `yaml:"health_check,omitempty"`
	Dependencies     []string          `yaml:"dependencies,omitempty"`
}

// VolumeMount maps a host path or named volume into a container.
type VolumeMount struct {
	Local     string `yaml:"local"`
	Container string `yaml:"container"`
	Options   string `yaml:"options,omitempty"`
}

func (v VolumeMount) String() string {
	if v.Options == "" {
		return fmt.Sprintf("%s:%s", v.Local, v.Container)
	}
	return fmt.Sprintf("%s:%s:%s", v.Local, v.Container, v.Options)
}

// PortMapping exposes a container port on the host.
type PortMapping struct {
	Local     int `yaml:"local"`
	Container int `yaml:"container"`
}

func (p PortMapping) String() string {
	return fmt.Sprintf("%d:%d", p.Local, p.Container)
}

// HealthCheck describes the probe that determines when a container is ready
// to be depended upon.
type HealthCheck struct {
	Command     string        `yaml:"command"`
	Interval    time.Duration `yaml:"interval,omitempty"`
	Retries     int           `yaml:"retries,omitempty"`
	StartPeriod time.Duration `yaml:"start_period,omitempty"`
}

// Defaults used when a health check omits probe tuning values.
const (
	DefaultHealthCheckInterval = time.Second
	DefaultHealthCheckRetries  = 30
)

// IntervalOrDefault returns the configured poll interval or the default.
func (h *HealthCheck) IntervalOrDefault() time.Duration {
	if h.Interval <= 0 {
		return DefaultHealthCheckInterval
	}
	return h.Interval
}

// RetriesOrDefault returns the configured retry budget or the default.
func (h *HealthCheck) RetriesOrDefault() int {
	if h.Retries <= 0 {
		return DefaultHealthCheckRetries
	}
	return h.Retries
}

// RunOptions carries the per-invocation choices made by the user (or forced
// on prerequisite tasks by the engine).
type RunOptions struct {
	CleanupAfterSuccess CleanupOption
	CleanupAfterFailure CleanupOption

	// IsMainTask is true only for the originally requested task; extra CLI
	// arguments and the user's cleanup-after-success preference apply to it
	// alone.
	IsMainTask bool

	ExtraArgs []string
	Quiet     bool
	Attached  bool
}

// DefaultRunOptions returns the options applied to the requested task when
// the user expresses no preference.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		CleanupAfterSuccess: CleanupEnabled,
		CleanupAfterFailure: CleanupEnabled,
		IsMainTask:          true,
		Attached:            true,
	}
}

// ForPrerequisite returns a copy of the options adjusted for a prerequisite
// task: cleanup after success is forced on and extra arguments are dropped,
// since prerequisite containers are implementation details the user cannot
// meaningfully inspect.
func (o RunOptions) ForPrerequisite() RunOptions {
	o.IsMainTask = false
	o.CleanupAfterSuccess = CleanupEnabled
	o.ExtraArgs = nil
	return o
}

// RunMetadata summarizes a completed session for telemetry collaborators.
type RunMetadata struct {
	SessionID     string        `json:"session_id"`
	TasksExecuted int           `json:"tasks_executed"`
	ExitCode      int           `json:"exit_code"`
	Duration      time.Duration `json:"duration"`
	StartedAt     time.Time     `json:"started_at"`
}
