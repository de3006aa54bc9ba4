package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Boundary bounds every call to an external capability with a
// per-attempt timeout and a retry budget for transient failures.
type Boundary struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
	Logger      *slog.Logger
}

// Call runs fn under b. A timed-out attempt yields ErrCapabilityTimeout;
// any other exhausted or non-retryable failure yields ErrCapabilityFailed.
// Cancellation of ctx ends retries immediately.
func Call[T any](ctx context.Context, b Boundary, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(b.MaxAttempts, 1)

	var (
		lastErr  error
		timedOut bool
	)

	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%w: %s: %w", ErrCapabilityFailed, op, err)
		}

		v, expired, err := attempt(ctx, b.Timeout, fn)
		if err == nil {
			return v, nil
		}
		lastErr, timedOut = err, expired

		if n == attempts || ctx.Err() != nil || !(expired || b.retryable(err)) {
			break
		}

		if b.Logger != nil {
			b.Logger.WarnContext(ctx, "capability call retrying",
				"op", op,
				"attempt", n,
				"error", err,
			)
		}

		if err := b.wait(ctx, n); err != nil {
			return zero, fmt.Errorf("%w: %s: %w", ErrCapabilityFailed, op, err)
		}
	}

	if timedOut {
		return zero, fmt.Errorf("%w: %s after %s: %w", ErrCapabilityTimeout, op, b.Timeout, lastErr)
	}
	return zero, fmt.Errorf("%w: %s: %w", ErrCapabilityFailed, op, lastErr)
}

func attempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, bool, error) {
	if timeout <= 0 {
		v, err := fn(ctx)
		return v, false, err
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(actx)
	expired := errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	return v, expired, err
}

func (b Boundary) retryable(err error) bool {
	if b.Retryable == nil {
		return false
	}
	return b.Retryable(err)
}

func (b Boundary) wait(ctx context.Context, n int) error {
	if b.Backoff <= 0 {
		return nil
	}

	t := time.NewTimer(b.Backoff * time.Duration(n))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
