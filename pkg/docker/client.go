// Package docker implements the ContainerRuntime capability set by driving
// the docker CLI binary. It holds no orchestration logic; the execution
// engine decides what to run and when.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
)

// Client drives a local docker daemon through the docker binary.
type Client struct {
	binary string
	logger logger.Logger
}

// NewClient creates a new docker client.
func NewClient(log logger.Logger) *Client {
	return &Client{
		binary: "docker",
		logger: log,
	}
}

// CreateNetwork creates a bridge network and returns its identifier.
func (c *Client) CreateNetwork(ctx context.Context, name string) (string, error) {
	out, err := c.run(ctx, "network", "create", "--driver", "bridge", name)
	if err != nil {
		return "", fmt.Errorf("creating network %s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// RemoveNetwork removes a network by identifier.
func (c *Client) RemoveNetwork(ctx context.Context, networkID string) error {
	if _, err := c.run(ctx, "network", "rm", networkID); err != nil {
		return fmt.Errorf("removing network %s: %w", networkID, err)
	}
	return nil
}

// AcquireImage pulls the image, or builds it when the spec names a build
// directory.
func (c *Client) AcquireImage(ctx context.Context, spec interfaces.ImageSpec) error {
	if spec.BuildDirectory != "" {
		tag := spec.Tag
		if tag == "" {
			tag = spec.Image
		}
		if _, err := c.run(ctx, "build", "--tag", tag, spec.BuildDirectory); err != nil {
			return fmt.Errorf("building image from %s: %w", spec.BuildDirectory, err)
		}
		return nil
	}

	if _, err := c.run(ctx, "pull", spec.Image); err != nil {
		return fmt.Errorf("pulling image %s: %w", spec.Image, err)
	}
	return nil
}

// CreateContainer creates a container and returns its identifier.
func (c *Client) CreateContainer(ctx context.Context, spec interfaces.ContainerSpec) (string, error) {
	args := []string{"create", "--name", spec.Name}

	if spec.NetworkID != "" {
		args = append(args, "--network", spec.NetworkID)
	}
	if spec.Alias != "" {
		args = append(args, "--network-alias", spec.Alias)
	}
	if spec.WorkingDir != "" {
		args = append(args, "--workdir", spec.WorkingDir)
	}
	for key, value := range spec.Environment {
		args = append(args, "--env", fmt.Sprintf("%s=%s", key, value))
	}
	for _, volume := range spec.Volumes {
		args = append(args, "--volume", volume)
	}
	for _, port := range spec.Ports {
		args = append(args, "--publish", port)
	}
	if len(spec.Entrypoint) > 0 {
		args = append(args, "--entrypoint", spec.Entrypoint[0])
	}
	if spec.Attached {
		args = append(args, "--interactive")
	}

	// Health checks are probed by the engine, not the daemon.
	args = append(args, "--no-healthcheck")

	args = append(args, spec.Image)
	if len(spec.Entrypoint) > 1 {
		args = append(args, spec.Entrypoint[1:]...)
	}
	args = append(args, spec.Command...)

	out, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("creating container %s: %w", spec.Name, err)
	}
	return strings.TrimSpace(out), nil
}

// StartContainer starts a created container.
func (c *Client) StartContainer(ctx context.Context, containerID string) error {
	if _, err := c.run(ctx, "start", containerID); err != nil {
		return fmt.Errorf("starting container %s: %w", containerID, err)
	}
	return nil
}

// StopContainer stops a running container.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	if _, err := c.run(ctx, "stop", containerID); err != nil {
		return fmt.Errorf("stopping container %s: %w", containerID, err)
	}
	return nil
}

// RemoveContainer removes a container and its anonymous volumes. Named
// volumes survive removal.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	if _, err := c.run(ctx, "rm", "--volumes", containerID); err != nil {
		return fmt.Errorf("removing container %s: %w", containerID, err)
	}
	return nil
}

// PollHealth runs the container's probe command once inside the container.
func (c *Client) PollHealth(ctx context.Context, containerID string, command string) error {
	if _, err := c.run(ctx, "exec", containerID, "sh", "-c", command); err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	return nil
}

// AttachIO starts the container with the given streams attached and blocks
// until it exits, returning the container's exit code. Starting and
// attaching are one call so no early output is lost.
func (c *Client) AttachIO(ctx context.Context, containerID string, streams interfaces.IOStreams) (int, error) {
	args := []string{"start", "--attach", containerID}
	if streams.Stdin != nil {
		args = []string{"start", "--attach", "--interactive", containerID}
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// When the context killed the process, its exit status is the signal,
	// not the container's code.
	if ctx.Err() != nil {
		return -1, fmt.Errorf("attaching to container %s: %w", containerID, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The attach process exits with the container's code.
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("attaching to container %s: %w", containerID, err)
}

// InspectExitCode reads the exit code of a stopped container.
func (c *Client) InspectExitCode(ctx context.Context, containerID string) (int, error) {
	out, err := c.run(ctx, "inspect", "--format", "{{.State.ExitCode}}", containerID)
	if err != nil {
		return -1, fmt.Errorf("inspecting container %s: %w", containerID, err)
	}

	code, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return -1, fmt.Errorf("unexpected exit code %q for container %s: %w", strings.TrimSpace(out), containerID, err)
	}
	return code, nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.logger.Debug("Invoking docker", logger.WithField("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", message, err)
	}

	return stdout.String(), nil
}
