package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/exustash/batect/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batect.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const sampleConfig = `
project_name: sample

containers:
  build-env:
    image: openjdk:17-jdk
    working_directory: /code
    volumes:
      - local: .
        container: /code
      - local: gradle-cache
        container: /home/gradle/.gradle
    dependencies:
      - database

  database:
    build_directory: dev-infrastructure/database
    environment:
      POSTGRES_DB: sample
    ports:
      - local: 15432
        container: 5432
    health_check:
      command: pg_isready -U postgres
      interval: 2s
      retries: 10
      start_period: 5s

tasks:
  build:
    description: Compile the application.
    run:
      container: build-env
      command: ./gradlew assemble

  test:
    description: Run the unit tests.
    prerequisites:
      - build
    run:
      container: build-env
      command: ./gradlew test
`

func TestLoadConfig(t *testing.T) {
	manager := config.NewManager()

	file, err := manager.LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if file.ProjectName != "sample" {
		t.Errorf("expected project name sample, got %q", file.ProjectName)
	}

	buildEnv := file.Containers["build-env"]
	if buildEnv == nil {
		t.Fatal("expected build-env container")
	}
	if buildEnv.Name != "build-env" {
		t.Errorf("container name should come from the map key, got %q", buildEnv.Name)
	}
	if len(buildEnv.Volumes) != 2 {
		t.Errorf("expected 2 volume mounts, got %d", len(buildEnv.Volumes))
	}

	database := file.Containers["database"]
	if database == nil {
		t.Fatal("expected database container")
	}
	if database.HealthCheck == nil {
		t.Fatal("expected a health check")
	}
	if database.HealthCheck.Interval != 2*time.Second {
		t.Errorf("expected 2s interval, got %v", database.HealthCheck.Interval)
	}
	if database.HealthCheck.StartPeriod != 5*time.Second {
		t.Errorf("expected 5s start period, got %v", database.HealthCheck.StartPeriod)
	}

	test := file.Tasks["test"]
	if test == nil {
		t.Fatal("expected test task")
	}
	if test.Name != "test" {
		t.Errorf("task name should come from the map key, got %q", test.Name)
	}
	if test.Run == nil || test.Run.Container != "build-env" {
		t.Errorf("unexpected run configuration: %+v", test.Run)
	}
	if len(test.Prerequisites) != 1 || test.Prerequisites[0] != "build" {
		t.Errorf("unexpected prerequisites: %v", test.Prerequisites)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	manager := config.NewManager()

	_, err := manager.LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_UnknownFieldsRejected(t *testing.T) {
	manager := config.NewManager()

	content := `
containers:
  build-env:
    image: alpine
    imagee: alpine
tasks: {}
`
	_, err := manager.LoadConfig(writeConfig(t, content))
	if err == nil {
		t.Fatal("expected an error for a misspelled field")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name: "container without image source",
			content: `
containers:
  build-env: {}
`,
			wantMsg: `container "build-env" must declare either an image or a build_directory`,
		},
		{
			name: "container with both image sources",
			content: `
containers:
  build-env:
    image: alpine
    build_directory: ./images/build-env
`,
			wantMsg: `container "build-env" declares both an image and a build_directory`,
		},
		{
			name: "health check without command",
			content: `
containers:
  database:
    image: postgres:15
    health_check:
      retries: 5
`,
			wantMsg: `container "database" declares a health_check without a command`,
		},
		{
			name: "incomplete volume mount",
			content: `
containers:
  build-env:
    image: alpine
    volumes:
      - local: .
`,
			wantMsg: `container "build-env" declares an incomplete volume mount`,
		},
		{
			name: "invalid port mapping",
			content: `
containers:
  web:
    image: nginx
    ports:
      - local: 0
        container: 80
`,
			wantMsg: `container "web" declares an invalid port mapping`,
		},
		{
			name: "task run without container",
			content: `
containers:
  build-env:
    image: alpine
tasks:
  build:
    run:
      command: make
`,
			wantMsg: `task "build" declares a run configuration without a container`,
		},
		{
			name: "task refers to unknown container",
			content: `
containers:
  build-env:
    image: alpine
tasks:
  build:
    run:
      container: ghost
`,
			wantMsg: `task "build" refers to unknown container "ghost"`,
		},
	}

	manager := config.NewManager()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestTaskNames(t *testing.T) {
	manager := config.NewManager()

	file, err := manager.LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := file.TaskNames()
	if len(names) != 2 || names[0] != "build" || names[1] != "test" {
		t.Errorf("expected sorted task names [build test], got %v", names)
	}
}
