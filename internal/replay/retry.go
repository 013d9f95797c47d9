package replay

import (
	"context"
	"time"
)

// maxRetryDelay caps the doubling backoff so a long store outage does
// not stretch the gap between flush attempts past a few seconds.
const maxRetryDelay = 10 * time.Second

// withRetry runs fn with exponential backoff. The runner wraps its
// snapshot and event flushes in it so a transient store failure does
// not abort a replay mid-stream.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
