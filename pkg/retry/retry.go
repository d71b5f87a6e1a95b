// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how an operation is retried. The zero value is not
// usable; construct with the fields that matter and leave ShouldRetry
// nil to retry every error.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialBackoff is the sleep after the first failure; each further
	// failure multiplies it by Multiplier (default 2).
	InitialBackoff time.Duration
	Multiplier     float64
	// MaxBackoff caps the sleep when set.
	MaxBackoff time.Duration
	// ShouldRetry filters errors; a nil filter retries everything. An
	// error it rejects is returned immediately.
	ShouldRetry func(error) bool
}

// Do runs op until it succeeds, the attempts are exhausted, the error is
// not retryable, or the context ends. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.InitialBackoff
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * multiplier)
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}
