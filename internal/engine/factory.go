package engine

import (
	"github.com/exustash/batect/pkg/docker"
	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/notifier"
	"github.com/exustash/batect/pkg/telemetry"
)

// DependencyFactory creates default implementations of dependencies.
// This follows the dependency injection pattern and removes hidden
// concrete fallbacks from constructors.
type DependencyFactory struct {
	logger        logger.Logger
	notifications bool
	telemetry     bool
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(log logger.Logger, notifications, telemetry bool) *DependencyFactory {
	return &DependencyFactory{
		logger:        log,
		notifications: notifications,
		telemetry:     telemetry,
	}
}

// CreateDefaults creates all default dependencies for a run.
// This centralizes dependency creation and makes it explicit and testable.
func (f *DependencyFactory) CreateDefaults() *interfaces.EngineDependencies {
	return &interfaces.EngineDependencies{
		Runtime:   f.createRuntime(),
		Events:    f.createEventBus(),
		Telemetry: f.createTelemetryRecorder(),
		Notifier:  f.createNotifier(),
	}
}

// CreateWithOverrides creates dependencies with specific overrides.
// This is useful for testing or custom configurations.
func (f *DependencyFactory) CreateWithOverrides(overrides interfaces.EngineDependencies) *interfaces.EngineDependencies {
	deps := f.CreateDefaults()

	if overrides.Runtime != nil {
		deps.Runtime = overrides.Runtime
	}
	if overrides.Events != nil {
		deps.Events = overrides.Events
	}
	if overrides.Telemetry != nil {
		deps.Telemetry = overrides.Telemetry
	}
	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}

	return deps
}

func (f *DependencyFactory) createRuntime() interfaces.ContainerRuntime {
	return docker.NewClient(f.logger)
}

func (f *DependencyFactory) createEventBus() events.Publisher {
	return events.NewBus()
}

func (f *DependencyFactory) createTelemetryRecorder() interfaces.TelemetryRecorder {
	if !f.telemetry {
		return telemetry.NullRecorder{}
	}
	return telemetry.NewRecorder(f.logger)
}

func (f *DependencyFactory) createNotifier() interfaces.TaskNotifier {
	return notifier.New(f.notifications, f.logger)
}
