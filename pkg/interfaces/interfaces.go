// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/types"
)

// ContainerRuntime abstracts the container and network operations the engine
// drives. The engine depends only on this capability set, never on a
// concrete transport.
type ContainerRuntime interface {
	CreateNetwork(ctx context.Context, name string) (networkID string, err error)
	RemoveNetwork(ctx context.Context, networkID string) error

	// AcquireImage pulls the image, or builds it when the spec names a
	// build directory.
	AcquireImage(ctx context.Context, spec ImageSpec) error

	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string) error

	// PollHealth runs the container's health probe once. A nil error means
	// the container reported healthy.
	PollHealth(ctx context.Context, containerID string, command string) error

	// AttachIO streams stdin into the container and its output back, blocking
	// until the container exits. The returned exit code is the container's.
	AttachIO(ctx context.Context, containerID string, streams IOStreams) (exitCode int, err error)

	InspectExitCode(ctx context.Context, containerID string) (int, error)
}

// ImageSpec tells the runtime how to acquire an image.
type ImageSpec struct {
	Image          string
	BuildDirectory string
	Tag            string
}

// ContainerSpec holds creation parameters for a single container.
type ContainerSpec struct {
	Name        string
	Image       string
	Command     []string
	Entrypoint  []string
	Environment map[string]string
	WorkingDir  string
	Volumes     []string
	Ports       []string
	NetworkID   string
	Alias       string
	HealthCheck *types.HealthCheck
	Attached    bool
}

// IOStreams carries the bidirectional streams attached to the main container.
type IOStreams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// TelemetryRecorder receives run metadata once a session completes.
type TelemetryRecorder interface {
	Record(meta types.RunMetadata) error
}

// TaskNotifier handles task outcome notifications
type TaskNotifier interface {
	NotifySuccess(task string, duration time.Duration)
	NotifyFailure(task string, err error)
}

// EngineDependencies contains all injectable dependencies
type EngineDependencies struct {
	Runtime   ContainerRuntime
	Events    events.Publisher
	Telemetry TelemetryRecorder
	Notifier  TaskNotifier
}
