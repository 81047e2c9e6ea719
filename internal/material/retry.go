package material

import (
	"context"
	"time"
)

// sleepFunc is injected into the processor so tests can observe retry
// delays without waiting for them.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithBackoff runs op up to maxAttempts times, sleeping
// base * multiplier^(attempt-1) between attempts. Only errors the
// classifier deems transient are retried; the first permanent error is
// returned immediately. Exhausting attempts returns the last error.
func retryWithBackoff(ctx context.Context, maxAttempts int, base time.Duration, multiplier float64,
	sleep sleepFunc, transient func(error) bool, op func() error) error {

	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	delay := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !transient(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * multiplier)
	}
	return lastErr
}
