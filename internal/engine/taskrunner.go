package engine

import (
	"context"

	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/types"
)

// TaskRunner executes a single task against the container runtime and maps
// its terminal condition onto an exit code.
type TaskRunner struct {
	deps        *interfaces.EngineDependencies
	logger      logger.Logger
	streams     interfaces.IOStreams
	parallelism int
}

// NewTaskRunner creates a new task runner.
func NewTaskRunner(deps *interfaces.EngineDependencies, log logger.Logger, streams interfaces.IOStreams, parallelism int) *TaskRunner {
	return &TaskRunner{
		deps:        deps,
		logger:      log,
		streams:     streams,
		parallelism: parallelism,
	}
}

// RunTask builds the task's container graph, executes it and returns the
// task's exit code. A zero code means the task's main container exited zero;
// reserved codes report configuration errors (120), engine errors (121) and
// interruption (130).
func (r *TaskRunner) RunTask(ctx context.Context, containers map[string]*types.Container, scheduled ScheduledTask) (int, error) {
	task := scheduled.Task
	log := r.logger.WithTask(task.Name)

	graph, err := BuildGraph(containers, task, scheduled.Options)
	if err != nil {
		log.Error("Task configuration is invalid", logger.WithField("error", err))
		return types.ExitCodeConfigError, err
	}

	log.Debug("Starting task",
		logger.WithField("containers", len(graph.Containers)),
		logger.WithField("main", graph.Main))

	executor := NewExecutor(r.deps.Runtime, r.deps.Events, r.logger, r.streams, r.parallelism)
	result := executor.Execute(ctx, graph, scheduled.Options)

	for _, tde := range result.TeardownErrors {
		log.Warn("Teardown did not fully complete", logger.WithField("error", tde))
	}

	switch result.Outcome {
	case OutcomeSuccess:
		log.Debug("Task finished", logger.WithField("exitCode", result.ExitCode))
		return result.ExitCode, nil

	case OutcomeInterrupted:
		log.Warn("Task was interrupted")
		return types.ExitCodeInterrupted, ErrInterrupted

	case OutcomeFailure:
		log.Error("Task failed", logger.WithField("error", result.Err))
		if IsConfigError(result.Err) {
			return types.ExitCodeConfigError, result.Err
		}
		return types.ExitCodeEngineError, result.Err

	default:
		log.Error("Task failed with an internal error", logger.WithField("error", result.Err))
		return types.ExitCodeEngineError, result.Err
	}
}
