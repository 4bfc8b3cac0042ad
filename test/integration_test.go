//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/exustash/batect/internal/engine"
	"github.com/exustash/batect/pkg/config"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/mocks"
	"github.com/exustash/batect/pkg/types"
)

// TestEndToEndSession loads a realistic configuration file and drives a full
// session, prerequisites included, against an in-memory runtime.
func TestEndToEndSession(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "batect.yml")

	configContent := `
project_name: shop

containers:
  build-env:
    image: golang:1.22
    working_directory: /code
    volumes:
      - local: .
        container: /code
      - local: go-cache
        container: /go/pkg/mod

  app:
    build_directory: ./images/app
    dependencies:
      - database

  database:
    image: postgres:15
    environment:
      POSTGRES_DB: shop
    health_check:
      command: pg_isready -U postgres
      interval: 1ms
      retries: 5

tasks:
  build:
    description: Compile the application.
    run:
      container: build-env
      command: go build ./...

  journey-test:
    description: Run the end to end tests.
    prerequisites:
      - build
    run:
      container: app
      command: ./run-journey-tests.sh
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	manager := config.NewManager()
	file, err := manager.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	runtime := mocks.NewMockContainerRuntime()
	sink := mocks.NewMockEventSink()
	telemetry := mocks.NewMockTelemetryRecorder()
	notifier := mocks.NewMockNotifier()

	deps := &interfaces.EngineDependencies{
		Runtime:   runtime,
		Events:    sink,
		Telemetry: telemetry,
		Notifier:  notifier,
	}

	log := logger.CreateLoggerWithOutput("error", nil)
	runner := engine.NewSessionRunner(deps, log, interfaces.IOStreams{}, 4, false)

	exitCode := runner.Run(context.Background(), file, "journey-test", types.DefaultRunOptions())
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}

	// Both run containers streamed, the database was probed, and no
	// resources survived the session.
	for _, target := range []string{"build-env", "app"} {
		found := false
		for _, op := range runtime.CallsFor(target) {
			if op == "attach" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s to run", target)
		}
	}

	probed := false
	for _, op := range runtime.CallsFor("database") {
		if op == "poll-health" {
			probed = true
		}
	}
	if !probed {
		t.Error("expected the database health check to run")
	}

	if left := runtime.Remaining(); len(left) != 0 {
		t.Errorf("expected all resources removed, %v left behind", left)
	}

	recorded := telemetry.Recorded()
	if len(recorded) != 1 || recorded[0].TasksExecuted != 2 {
		t.Errorf("expected one session record covering two tasks, got %v", recorded)
	}
}
