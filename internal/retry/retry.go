// Package retry provides the retry policy shared by the remote chat and
// speech-synthesis clients.
package retry

import (
	"context"
	"time"
)

// Policy describes how many times an operation may be attempted and how long
// to wait between attempts. The zero value performs a single attempt.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Backoff maps the just-failed attempt number (1-based) to the delay
	// before the next attempt.
	Backoff func(attempt int) time.Duration

	// sleep is replaceable in tests.
	sleep func(context.Context, time.Duration) error
}

// ExponentialBackoff doubles the delay per attempt starting from base, the
// backoff shape used against the generative API (2s, 4s, 8s... for a 2s base).
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// NewPolicy builds a policy with the given attempt budget and backoff shape.
func NewPolicy(maxAttempts int, backoff func(attempt int) time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Backoff: backoff}
}

// Do runs op until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. The last error is returned on exhaustion; ctx errors are returned
// as-is.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = op(ctx, attempt); lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
