package presence

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/observer"
)

// observe calls op until it returns a conclusive result. Inconclusive results
// are retried with exponential backoff and no attempt limit; any other error
// stops the retry and is returned as is.
func observe[T any](ctx context.Context, m *Monitor, op func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.settings.Retry.Initial
	policy.MaxInterval = m.settings.Retry.Max

	return backoff.Retry(ctx,
		func() (T, error) {
			m.stats.Observations++

			result, err := op(ctx)
			if err != nil && !errors.Is(err, observer.ErrInconclusive) {
				return result, backoff.Permanent(err)
			}

			return result, err
		},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.stats.Inconclusive++

			logger.WarnKV(ctx, "Observation inconclusive, retrying", "error", err, "retry_in", next.String())
		}),
	)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
