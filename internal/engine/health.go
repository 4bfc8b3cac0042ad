package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/types"
)

// waitForHealthy polls the container's probe at the configured interval
// until it reports healthy or the retry budget is exhausted. Exhausting
// retries is a runtime failure for the owning step.
func waitForHealthy(ctx context.Context, runtime interfaces.ContainerRuntime, containerID string, check *types.HealthCheck) error {
	if check.StartPeriod > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(check.StartPeriod):
		}
	}

	retries := check.RetriesOrDefault()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(check.IntervalOrDefault()),
			uint64(retries-1),
		),
		ctx,
	)

	probe := func() error {
		return runtime.PollHealth(ctx, containerID, check.Command)
	}

	if err := backoff.Retry(probe, policy); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("container did not become healthy within %d attempts: %w", retries, err)
	}

	return nil
}
