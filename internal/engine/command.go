package engine

import (
	"github.com/google/shlex"

	"github.com/exustash/batect/pkg/types"
)

// Invocation is the effective command and entrypoint for one container. An
// empty slice means "use the image default".
type Invocation struct {
	Command    []string
	Entrypoint []string
}

// ResolveInvocation computes the effective invocation for a container within
// a task. If the container is the task's run container and the task defines a
// run command, that command is the base; otherwise the container's own
// default applies. Extra CLI arguments are appended only when this is the run
// container of the main (originally requested) task.
func ResolveInvocation(container *types.Container, task *types.Task, opts types.RunOptions) (Invocation, error) {
	isRunContainer := task.RunContainerName() == container.Name

	command := container.Command
	entrypoint := container.Entrypoint

	if isRunContainer && task.Run != nil {
		if task.Run.Command != "" {
			command = task.Run.Command
		}
		if task.Run.Entrypoint != "" {
			entrypoint = task.Run.Entrypoint
		}
	}

	commandParts, err := splitCommand(command)
	if err != nil {
		return Invocation{}, NewConfigError("task %q container %q has an unparseable command: %v", task.Name, container.Name, err)
	}
	entrypointParts, err := splitCommand(entrypoint)
	if err != nil {
		return Invocation{}, NewConfigError("task %q container %q has an unparseable entrypoint: %v", task.Name, container.Name, err)
	}

	if isRunContainer && opts.IsMainTask && len(opts.ExtraArgs) > 0 {
		if len(commandParts) == 0 {
			return Invocation{}, NewConfigError(
				"additional arguments were passed for task %q, but container %q has no command to append them to",
				task.Name, container.Name)
		}
		commandParts = append(commandParts, opts.ExtraArgs...)
	}

	return Invocation{
		Command:    commandParts,
		Entrypoint: entrypointParts,
	}, nil
}

func splitCommand(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	return shlex.Split(raw)
}
