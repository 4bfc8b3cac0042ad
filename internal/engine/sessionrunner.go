package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/exustash/batect/pkg/config"
	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/types"
)

// SessionRunner runs a requested task and its prerequisite chain in order,
// short-circuiting on the first non-zero exit.
type SessionRunner struct {
	deps          *interfaces.EngineDependencies
	logger        logger.Logger
	streams       interfaces.IOStreams
	parallelism   int
	notifications bool
}

// NewSessionRunner creates a new session runner.
func NewSessionRunner(deps *interfaces.EngineDependencies, log logger.Logger, streams interfaces.IOStreams, parallelism int, notifications bool) *SessionRunner {
	return &SessionRunner{
		deps:          deps,
		logger:        log,
		streams:       streams,
		parallelism:   parallelism,
		notifications: notifications,
	}
}

// Run resolves the requested task's prerequisite chain and executes each
// task in order. Prerequisites must exit zero for the chain to continue; the
// requested task's exit code becomes the session's exit code whatever its
// value.
func (r *SessionRunner) Run(ctx context.Context, file *config.File, requested string, opts types.RunOptions) int {
	startedAt := time.Now()
	sessionID := uuid.NewString()

	order, err := ResolveTaskOrder(file.Tasks, requested, opts)
	if err != nil {
		r.logger.Error("Could not resolve the task order", logger.WithField("error", err))
		return r.finish(sessionID, requested, startedAt, 0, types.ExitCodeConfigError, err)
	}

	runner := NewTaskRunner(r.deps, r.logger, r.streams, r.parallelism)
	executed := 0

	for i, scheduled := range order {
		if i > 0 && !opts.Quiet {
			r.deps.Events.Publish(events.Event{
				Kind: events.TaskSeparator,
				Task: scheduled.Task.Name,
				Time: time.Now(),
			})
		}

		exitCode, err := runner.RunTask(ctx, file.Containers, scheduled)
		executed++

		final := i == len(order)-1
		if final {
			return r.finish(sessionID, requested, startedAt, executed, exitCode, err)
		}

		if exitCode != 0 {
			// A prerequisite's non-zero exit stops the chain and becomes
			// the session's exit code.
			if err == nil {
				err = fmt.Errorf("prerequisite task %q exited with code %d", scheduled.Task.Name, exitCode)
			}
			r.logger.Error("Prerequisite task failed, later tasks will not run",
				logger.WithField("task", scheduled.Task.Name),
				logger.WithField("exitCode", exitCode))
			return r.finish(sessionID, requested, startedAt, executed, exitCode, err)
		}
	}

	return r.finish(sessionID, requested, startedAt, executed, types.ExitCodeEngineError, nil)
}

// finish records the session's telemetry and raises the desktop
// notification before handing back the exit code.
func (r *SessionRunner) finish(sessionID, task string, startedAt time.Time, executed, exitCode int, err error) int {
	duration := time.Since(startedAt)

	meta := types.RunMetadata{
		SessionID:     sessionID,
		TasksExecuted: executed,
		ExitCode:      exitCode,
		Duration:      duration,
		StartedAt:     startedAt,
	}
	if recordErr := r.deps.Telemetry.Record(meta); recordErr != nil {
		r.logger.Debug("Could not record session telemetry", logger.WithField("error", recordErr))
	}

	if r.notifications && r.deps.Notifier != nil {
		switch {
		case exitCode == 0:
			r.deps.Notifier.NotifySuccess(task, duration)
		case errors.Is(err, ErrInterrupted):
			// The user stopped the run themselves; no notification needed.
		default:
			if err == nil {
				err = fmt.Errorf("task %q exited with code %d", task, exitCode)
			}
			r.deps.Notifier.NotifyFailure(task, err)
		}
	}

	return exitCode
}
