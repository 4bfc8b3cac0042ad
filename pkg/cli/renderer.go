package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/exustash/batect/pkg/events"
)

// Renderer turns engine events into progress output. It never interleaves
// with the task's own streams beyond line granularity, and in quiet mode it
// stays silent except for failures.
type Renderer struct {
	out   io.Writer
	quiet bool
}

// NewRenderer creates a new renderer.
func NewRenderer(out io.Writer, quiet bool) *Renderer {
	return &Renderer{out: out, quiet: quiet}
}

// Start consumes events until the channel closes. The returned channel
// closes once every event has been rendered.
func (r *Renderer) Start(ch <-chan events.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range ch {
			r.render(event)
		}
	}()
	return done
}

func (r *Renderer) render(event events.Event) {
	switch event.Kind {
	case events.TaskFailed:
		fmt.Fprintf(r.out, "%s task %s failed: %s\n", color.RedString("[batect]"), event.Task, event.Message)

	case events.TaskSeparator:
		if !r.quiet {
			fmt.Fprintf(r.out, "\n%s\n\n", color.WhiteString(strings.Repeat("-", 40)))
		}

	case events.StepStarting:
		if !r.quiet {
			fmt.Fprintf(r.out, "%s %s\n", color.CyanString("[batect]"), describeStep(event))
		}

	case events.StepCompleted:
		if !r.quiet && !event.Succeeded {
			fmt.Fprintf(r.out, "%s %s failed\n", color.RedString("[batect]"), event.Step)
		}

	case events.ContainerBecameHealthy:
		if !r.quiet {
			fmt.Fprintf(r.out, "%s container %s is healthy\n", color.GreenString("[batect]"), event.Node)
		}

	case events.ContainerExited:
		if !r.quiet {
			fmt.Fprintf(r.out, "%s container %s exited with code %d\n", color.CyanString("[batect]"), event.Node, event.ExitCode)
		}
	}
}

func describeStep(event events.Event) string {
	kind, _, found := strings.Cut(event.Step, ":")
	if !found {
		return event.Step
	}

	switch kind {
	case "create-network":
		return "creating the task network"
	case "acquire-image":
		return fmt.Sprintf("acquiring the image for %s", event.Node)
	case "create-container":
		return fmt.Sprintf("creating container %s", event.Node)
	case "start-container":
		return fmt.Sprintf("starting container %s", event.Node)
	case "wait-healthy":
		return fmt.Sprintf("waiting for container %s to become healthy", event.Node)
	case "run-main":
		return fmt.Sprintf("running container %s", event.Node)
	case "stop-container":
		return fmt.Sprintf("stopping container %s", event.Node)
	case "remove-container":
		return fmt.Sprintf("removing container %s", event.Node)
	case "remove-network":
		return "removing the task network"
	default:
		return event.Step
	}
}
