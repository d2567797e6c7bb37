// Package retry provides the bounded retry-with-backoff combinator used by
// the dispatcher and the response generator.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry parameters.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles after each
	// subsequent failure (base, 2*base, 4*base, ...). Zero disables waiting.
	BaseDelay time.Duration
}

// sleep waits for d or until ctx is cancelled. Package variable so tests
// can run without real delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to cfg.MaxAttempts times, waiting between attempts with a
// doubling delay. It returns nil on the first success; after exhaustion it
// returns the last error. Context cancellation aborts the wait and returns
// the context error.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be at least 1")
	}

	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
	}
	return lastErr
}
