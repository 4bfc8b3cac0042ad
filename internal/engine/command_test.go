package engine_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/exustash/batect/internal/engine"
	"github.com/exustash/batect/pkg/types"
)

func TestResolveInvocation(t *testing.T) {
	runTask := &types.Task{
		Name: "test",
		Run:  &types.TaskRunConfiguration{Container: "build-env"},
	}

	tests := []struct {
		name           string
		container      *types.Container
		task           *types.Task
		opts           types.RunOptions
		wantCommand    []string
		wantEntrypoint []string
	}{
		{
			name:        "container default command",
			container:   &types.Container{Name: "build-env", Command: "./gradlew build"},
			task:        runTask,
			opts:        types.DefaultRunOptions(),
			wantCommand: []string{"./gradlew", "build"},
		},
		{
			name:      "task run command overrides container default",
			container: &types.Container{Name: "build-env", Command: "./gradlew build"},
			task: &types.Task{
				Name: "test",
				Run:  &types.TaskRunConfiguration{Container: "build-env", Command: "./gradlew test"},
			},
			opts:        types.DefaultRunOptions(),
			wantCommand: []string{"./gradlew", "test"},
		},
		{
			name:      "task run command does not apply to other containers",
			container: &types.Container{Name: "database", Command: "postgres"},
			task: &types.Task{
				Name: "test",
				Run:  &types.TaskRunConfiguration{Container: "build-env", Command: "./gradlew test"},
			},
			opts:        types.DefaultRunOptions(),
			wantCommand: []string{"postgres"},
		},
		{
			name:      "task run entrypoint overrides container default",
			container: &types.Container{Name: "build-env", Entrypoint: "/docker-entrypoint.sh"},
			task: &types.Task{
				Name: "test",
				Run:  &types.TaskRunConfiguration{Container: "build-env", Entrypoint: "sh -c"},
			},
			opts:           types.DefaultRunOptions(),
			wantEntrypoint: []string{"sh", "-c"},
		},
		{
			name:      "extra arguments appended for the main task's run container",
			container: &types.Container{Name: "build-env", Command: "./test.sh"},
			task:      runTask,
			opts: types.RunOptions{
				IsMainTask: true,
				ExtraArgs:  []string{"--fast", "module-a"},
			},
			wantCommand: []string{"./test.sh", "--fast", "module-a"},
		},
		{
			name:      "extra arguments ignored for prerequisites",
			container: &types.Container{Name: "build-env", Command: "./test.sh"},
			task:      runTask,
			opts: types.RunOptions{
				IsMainTask: false,
				ExtraArgs:  []string{"--fast"},
			},
			wantCommand: []string{"./test.sh"},
		},
		{
			name:        "quoted arguments survive splitting",
			container:   &types.Container{Name: "build-env", Command: `sh -c "echo hello world"`},
			task:        runTask,
			opts:        types.DefaultRunOptions(),
			wantCommand: []string{"sh", "-c", "echo hello world"},
		},
		{
			name:        "no command means image default",
			container:   &types.Container{Name: "build-env"},
			task:        runTask,
			opts:        types.DefaultRunOptions(),
			wantCommand: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := engine.ResolveInvocation(tt.container, tt.task, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(inv.Command, tt.wantCommand) {
				t.Errorf("expected command %v, got %v", tt.wantCommand, inv.Command)
			}
			if !reflect.DeepEqual(inv.Entrypoint, tt.wantEntrypoint) {
				t.Errorf("expected entrypoint %v, got %v", tt.wantEntrypoint, inv.Entrypoint)
			}
		})
	}
}

func TestResolveInvocation_ExtraArgsWithoutCommand(t *testing.T) {
	container := &types.Container{Name: "build-env"}
	task := &types.Task{
		Name: "test",
		Run:  &types.TaskRunConfiguration{Container: "build-env"},
	}
	opts := types.RunOptions{IsMainTask: true, ExtraArgs: []string{"--fast"}}

	_, err := engine.ResolveInvocation(container, task, opts)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !engine.IsConfigError(err) {
		t.Errorf("expected a configuration error, got %T", err)
	}
	if !strings.Contains(err.Error(), "no command to append them to") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}
