package venue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetryAction is the venue call that tripped the breaker, replayed as
// the recovery probe.
type RetryAction func(ctx context.Context) error

// Breaker isolates a failing venue. Once tripped, the venue is excluded
// from all coordination until a replay of the failed call succeeds.
// Tripping is idempotent: repeat failures while tripped keep the first
// recorded action and timestamp.
type Breaker struct {
	venue  string
	logger *zap.Logger

	mu          sync.Mutex
	tripped     bool
	trippedAt   time.Time
	retry       RetryAction
	recoverable func(error) bool
}

// NewBreaker creates a cleared breaker for a venue.
func NewBreaker(venueName string, logger *zap.Logger) *Breaker {
	return &Breaker{venue: venueName, logger: logger}
}

// Trip records the failed call and its recoverable-error matcher. A
// breaker that is already tripped stays as it was.
func (b *Breaker) Trip(retry RetryAction, recoverable func(error) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tripped {
		return
	}

	b.tripped = true
	b.trippedAt = time.Now()
	b.retry = retry
	b.recoverable = recoverable

	BreakerTripsTotal.WithLabelValues(b.venue).Inc()
	BreakerState.WithLabelValues(b.venue).Set(1)
	b.logger.Warn("circuit-breaker-tripped", zap.String("venue", b.venue))
}

// Tripped reports whether the venue is currently excluded.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// TrippedAt returns when the breaker last tripped.
func (b *Breaker) TrippedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trippedAt
}

// Probe replays the recorded call. Success clears the breaker. A
// recoverable failure leaves it tripped and returns nil. Any other
// failure propagates: the problem is not transient and the operator
// must see it.
func (b *Breaker) Probe(ctx context.Context) error {
	b.mu.Lock()
	if !b.tripped {
		b.mu.Unlock()
		return nil
	}
	retry := b.retry
	recoverable := b.recoverable
	b.mu.Unlock()

	err := retry(ctx)
	if err == nil {
		b.mu.Lock()
		b.tripped = false
		b.retry = nil
		b.recoverable = nil
		b.mu.Unlock()

		BreakerState.WithLabelValues(b.venue).Set(0)
		b.logger.Info("circuit-breaker-cleared",
			zap.String("venue", b.venue),
			zap.Duration("tripped-for", time.Since(b.TrippedAt())))
		return nil
	}

	if recoverable != nil && recoverable(err) {
		b.logger.Debug("circuit-breaker-probe-failed",
			zap.String("venue", b.venue),
			zap.Error(err))
		return nil
	}

	return err
}
