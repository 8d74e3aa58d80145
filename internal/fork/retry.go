package fork

import (
	"context"
	"time"
)

// withRetry runs fn until it succeeds or maxRetries extra attempts are spent,
// doubling the delay between attempts. onRetry, when set, sees every failure
// that is followed by another attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, onRetry func(attempt int, err error), fn func(context.Context) error) error {
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
		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
