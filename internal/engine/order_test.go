package engine_test

import (
	"strings"
	"testing"

	"github.com/exustash/batect/internal/engine"
	"github.com/exustash/batect/pkg/types"
)

func task(name string, prereqs ...string) *types.Task {
	return &types.Task{
		Name:          name,
		Run:           &types.TaskRunConfiguration{Container: "build-env"},
		Prerequisites: prereqs,
	}
}

func catalogOf(tasks ...*types.Task) map[string]*types.Task {
	catalog := make(map[string]*types.Task)
	for _, t := range tasks {
		catalog[t.Name] = t
	}
	return catalog
}

func namesOf(order []engine.ScheduledTask) []string {
	names := make([]string, len(order))
	for i, s := range order {
		names[i] = s.Task.Name
	}
	return names
}

func TestResolveTaskOrder(t *testing.T) {
	tests := []struct {
		name      string
		catalog   map[string]*types.Task
		requested string
		want      []string
	}{
		{
			name:      "task without prerequisites",
			catalog:   catalogOf(task("test")),
			requested: "test",
			want:      []string{"test"},
		},
		{
			name:      "linear chain runs prerequisites first",
			catalog:   catalogOf(task("deploy", "test"), task("test", "build"), task("build")),
			requested: "deploy",
			want:      []string{"build", "test", "deploy"},
		},
		{
			name: "shared prerequisite appears exactly once",
			catalog: catalogOf(
				task("all", "lint", "test"),
				task("lint", "build"),
				task("test", "build"),
				task("build"),
			),
			requested: "all",
			want:      []string{"build", "lint", "test", "all"},
		},
		{
			name:      "requested task always last",
			catalog:   catalogOf(task("a", "b", "c"), task("b"), task("c", "b")),
			requested: "a",
			want:      []string{"b", "c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := engine.ResolveTaskOrder(tt.catalog, tt.requested, types.DefaultRunOptions())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := namesOf(order)
			if len(got) != len(tt.want) {
				t.Fatalf("expected order %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("expected order %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestResolveTaskOrder_PrerequisiteOptions(t *testing.T) {
	opts := types.DefaultRunOptions()
	opts.CleanupAfterSuccess = types.CleanupDisabled
	opts.ExtraArgs = []string{"--verbose"}

	order, err := engine.ResolveTaskOrder(catalogOf(task("test", "build"), task("build")), "test", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prereq := order[0]
	if prereq.Task.Name != "build" {
		t.Fatalf("expected build first, got %s", prereq.Task.Name)
	}
	if prereq.Options.IsMainTask {
		t.Error("prerequisite should not be marked as the main task")
	}
	if prereq.Options.CleanupAfterSuccess != types.CleanupEnabled {
		t.Error("prerequisite cleanup after success must be forced on")
	}
	if len(prereq.Options.ExtraArgs) != 0 {
		t.Error("extra arguments must not apply to prerequisites")
	}

	main := order[1]
	if !main.Options.IsMainTask {
		t.Error("requested task should be marked as the main task")
	}
	if main.Options.CleanupAfterSuccess != types.CleanupDisabled {
		t.Error("requested task keeps the user's cleanup preference")
	}
	if len(main.Options.ExtraArgs) != 1 {
		t.Error("extra arguments apply to the requested task")
	}
}

func TestResolveTaskOrder_Errors(t *testing.T) {
	tests := []struct {
		name      string
		catalog   map[string]*types.Task
		requested string
		wantMsg   string
	}{
		{
			name:      "unknown task",
			catalog:   catalogOf(task("build")),
			requested: "missing",
			wantMsg:   `task "missing" does not exist`,
		},
		{
			name:      "unknown prerequisite",
			catalog:   catalogOf(task("test", "setup")),
			requested: "test",
			wantMsg:   `task "test" depends on task "setup", which does not exist`,
		},
		{
			name:      "direct cycle",
			catalog:   catalogOf(task("a", "b"), task("b", "a")),
			requested: "a",
			wantMsg:   "dependency cycle between tasks",
		},
		{
			name:      "self cycle",
			catalog:   catalogOf(task("a", "a")),
			requested: "a",
			wantMsg:   "dependency cycle between tasks",
		},
		{
			name:      "transitive cycle",
			catalog:   catalogOf(task("a", "b"), task("b", "c"), task("c", "a")),
			requested: "a",
			wantMsg:   "dependency cycle between tasks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ResolveTaskOrder(tt.catalog, tt.requested, types.DefaultRunOptions())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !engine.IsConfigError(err) {
				t.Errorf("expected a configuration error, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestResolveTaskOrder_CycleMessageNamesTasks(t *testing.T) {
	catalog := catalogOf(task("build", "test"), task("test", "build"))

	_, err := engine.ResolveTaskOrder(catalog, "build", types.DefaultRunOptions())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "build") || !strings.Contains(err.Error(), "test") {
		t.Errorf("cycle message should name the tasks involved, got %q", err.Error())
	}
}
