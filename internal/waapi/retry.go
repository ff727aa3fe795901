package waapi

import (
	"context"
	"time"
)

// ExecuteWithRetry calls fn until it reports success or maxAttempts is
// exhausted, sleeping delay between attempts. Use it for idempotent reads
// only; the import call is never retried. It returns false early when ctx is
// cancelled.
func ExecuteWithRetry(ctx context.Context, fn func() bool, delay time.Duration, maxAttempts int) bool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if fn() {
			return true
		}
		if attempt == maxAttempts {
			break
		}
		if err := sleepContext(ctx, delay); err != nil {
			return false
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
