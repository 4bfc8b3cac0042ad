package engine_test

import (
	"context"
	"testing"

	"github.com/exustash/batect/internal/engine"
	"github.com/exustash/batect/pkg/config"
	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/mocks"
	"github.com/exustash/batect/pkg/types"
)

type sessionFixture struct {
	runtime   *mocks.MockContainerRuntime
	sink      *mocks.MockEventSink
	telemetry *mocks.MockTelemetryRecorder
	notifier  *mocks.MockNotifier
	runner    *engine.SessionRunner
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		runtime:   mocks.NewMockContainerRuntime(),
		sink:      mocks.NewMockEventSink(),
		telemetry: mocks.NewMockTelemetryRecorder(),
		notifier:  mocks.NewMockNotifier(),
	}
	deps := &interfaces.EngineDependencies{
		Runtime:   f.runtime,
		Events:    f.sink,
		Telemetry: f.telemetry,
		Notifier:  f.notifier,
	}
	log := logger.CreateLoggerWithOutput("error", nil)
	f.runner = engine.NewSessionRunner(deps, log, interfaces.IOStreams{}, 4, true)
	return f
}

func buildTestFile() *config.File {
	return &config.File{
		ProjectName: "sample",
		Containers: map[string]*types.Container{
			"builder": {Name: "builder", Image: "golang:1.22", Command: "go build ./..."},
			"tester":  {Name: "tester", Image: "golang:1.22", Command: "go test ./..."},
		},
		Tasks: map[string]*types.Task{
			"build": {
				Name: "build",
				Run:  &types.TaskRunConfiguration{Container: "builder"},
			},
			"test": {
				Name:          "test",
				Run:           &types.TaskRunConfiguration{Container: "tester"},
				Prerequisites: []string{"build"},
			},
		},
	}
}

func TestSessionRunner_RunsPrerequisitesInOrder(t *testing.T) {
	f := newSessionFixture()
	file := buildTestFile()

	exitCode := f.runner.Run(context.Background(), file, "test", types.DefaultRunOptions())

	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}

	calls := f.runtime.Calls()
	if seqOf(t, calls, "attach", "builder") > seqOf(t, calls, "attach", "tester") {
		t.Error("the build prerequisite must run before the test task")
	}

	if separators := f.sink.EventsOfKind(events.TaskSeparator); len(separators) != 1 {
		t.Errorf("expected one separator between the two tasks, got %d", len(separators))
	}

	recorded := f.telemetry.Recorded()
	if len(recorded) != 1 {
		t.Fatalf("expected one telemetry record, got %d", len(recorded))
	}
	if recorded[0].TasksExecuted != 2 {
		t.Errorf("expected 2 tasks executed, got %d", recorded[0].TasksExecuted)
	}
	if recorded[0].ExitCode != 0 {
		t.Errorf("expected recorded exit code 0, got %d", recorded[0].ExitCode)
	}
	if recorded[0].SessionID == "" {
		t.Error("expected a session identifier")
	}

	notifications := f.notifier.Notifications()
	if len(notifications) != 1 || !notifications[0].Succeeded {
		t.Errorf("expected one success notification, got %v", notifications)
	}
}

func TestSessionRunner_PrerequisiteFailureShortCircuits(t *testing.T) {
	f := newSessionFixture()
	f.runtime.SetExitCode("builder", 3)
	file := buildTestFile()

	exitCode := f.runner.Run(context.Background(), file, "test", types.DefaultRunOptions())

	// The prerequisite's exit code becomes the session's exit code.
	if exitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", exitCode)
	}

	if hasCall(f.runtime.Calls(), "attach", "tester") {
		t.Error("the test task must not run after its prerequisite fails")
	}

	recorded := f.telemetry.Recorded()
	if len(recorded) != 1 || recorded[0].TasksExecuted != 1 {
		t.Fatalf("expected one telemetry record with one task executed, got %v", recorded)
	}

	notifications := f.notifier.Notifications()
	if len(notifications) != 1 || notifications[0].Succeeded {
		t.Errorf("expected one failure notification, got %v", notifications)
	}
}

func TestSessionRunner_PrerequisiteResourcesAlwaysCleanedUp(t *testing.T) {
	f := newSessionFixture()
	file := buildTestFile()

	// Disabling cleanup-after-success applies to the requested task only;
	// prerequisites always clean up after themselves.
	opts := types.DefaultRunOptions()
	opts.CleanupAfterSuccess = types.CleanupDisabled

	exitCode := f.runner.Run(context.Background(), file, "test", opts)
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}

	if !hasCall(f.runtime.Calls(), "remove-container", "builder") {
		t.Error("prerequisite containers must be removed")
	}
	if hasCall(f.runtime.Calls(), "remove-container", "tester") {
		t.Error("the requested task's container must be left behind")
	}
}

func TestSessionRunner_UnknownTask(t *testing.T) {
	f := newSessionFixture()
	file := buildTestFile()

	exitCode := f.runner.Run(context.Background(), file, "deploy", types.DefaultRunOptions())

	if exitCode != types.ExitCodeConfigError {
		t.Fatalf("expected exit code %d, got %d", types.ExitCodeConfigError, exitCode)
	}
	if len(f.runtime.Calls()) != 0 {
		t.Error("no runtime calls expected for an unknown task")
	}
}

func TestSessionRunner_TaskWithoutRunConfiguration(t *testing.T) {
	f := newSessionFixture()
	file := buildTestFile()
	file.Tasks["broken"] = &types.Task{Name: "broken"}

	exitCode := f.runner.Run(context.Background(), file, "broken", types.DefaultRunOptions())

	if exitCode != types.ExitCodeConfigError {
		t.Fatalf("expected exit code %d, got %d", types.ExitCodeConfigError, exitCode)
	}
}

func TestSessionRunner_QuietSuppressesSeparators(t *testing.T) {
	f := newSessionFixture()
	file := buildTestFile()

	opts := types.DefaultRunOptions()
	opts.Quiet = true

	if exitCode := f.runner.Run(context.Background(), file, "test", opts); exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}
	if separators := f.sink.EventsOfKind(events.TaskSeparator); len(separators) != 0 {
		t.Errorf("expected no separators in quiet mode, got %d", len(separators))
	}
}
