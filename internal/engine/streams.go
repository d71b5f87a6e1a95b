package engine

import (
	"context"
	"errors"
	"time"

	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/retry"
	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

// resubscriber is implemented by streaming sources that can force a
// fresh snapshot on the existing update channel. Sources without it are
// re-subscribed from scratch after a sequence gap.
type resubscriber interface {
	Resubscribe(ctx context.Context) error
}

var defaultSubscribePolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: time.Second,
	MaxBackoff:     30 * time.Second,
}

// startStreams launches one consumer goroutine per venue whose client
// pushes sequenced book deltas. Polled venues are left to the bid/ask
// path and simply have no stream.
func (e *Engine) startStreams(ctx context.Context) {
	for _, v := range e.coord.Venues() {
		src, ok := v.Client().(venue.StreamingPriceSource)
		if !ok {
			continue
		}

		pairs := e.venuePairs(v)
		if len(pairs) == 0 {
			continue
		}

		go e.consumeStream(ctx, v, src, pairs)
	}
}

func (e *Engine) venuePairs(v *venue.State) []types.Pair {
	var out []types.Pair
	for _, pair := range e.config.Pairs {
		if v.SupportsPair(pair) {
			out = append(out, pair)
		}
	}
	return out
}

// consumeStream applies a venue's updates to its book for the life of
// the engine. A sequence gap means the book is inconsistent: the stream
// is re-synchronized so the venue sends a fresh snapshot, and the stale
// book is left untouched until it arrives.
func (e *Engine) consumeStream(ctx context.Context, v *venue.State, src venue.StreamingPriceSource, pairs []types.Pair) {
	for ctx.Err() == nil {
		var updates <-chan types.SequencedUpdate
		err := e.subscribePolicy.Do(ctx, func(ctx context.Context) error {
			var err error
			updates, err = src.Subscribe(ctx, pairs)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Error("stream-subscribe-exhausted",
				zap.String("venue", v.Name()), zap.Error(err))
			v.Breaker().Trip(e.resumeStream(ctx, v, src, pairs), types.Retryable)
			return
		}

		e.applyStream(ctx, v, src, updates)
	}
}

// resumeStream is the breaker retry action for a venue whose stream
// could not be established. It re-subscribes and, on success, hands the
// re-opened stream to a fresh consumer goroutine: clearing the breaker
// without one would leave a nominally healthy venue with nobody reading
// its updates, so its book would stay stale forever.
func (e *Engine) resumeStream(ctx context.Context, v *venue.State, src venue.StreamingPriceSource, pairs []types.Pair) venue.RetryAction {
	return func(probeCtx context.Context) error {
		updates, err := src.Subscribe(probeCtx, pairs)
		if err != nil {
			return err
		}

		go func() {
			e.applyStream(ctx, v, src, updates)
			if ctx.Err() == nil {
				e.consumeStream(ctx, v, src, pairs)
			}
		}()
		return nil
	}
}

func (e *Engine) applyStream(ctx context.Context, v *venue.State, src venue.StreamingPriceSource, updates <-chan types.SequencedUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				e.logger.Warn("stream-ended", zap.String("venue", v.Name()))
				return
			}

			err := v.Books().ApplyUpdate(update)
			if err == nil {
				continue
			}

			var seqErr *types.SequenceError
			if !errors.As(err, &seqErr) {
				e.logger.Error("book-update-failed",
					zap.String("venue", v.Name()), zap.Error(err))
				continue
			}

			StreamResyncsTotal.WithLabelValues(v.Name()).Inc()
			e.logger.Warn("sequence-gap-resynchronizing",
				zap.String("venue", v.Name()),
				zap.String("pair", seqErr.Pair.String()),
				zap.Int64("expected", seqErr.Expected),
				zap.Int64("received", seqErr.Received))

			rs, ok := src.(resubscriber)
			if !ok {
				// No in-place resync: drop the channel and subscribe
				// from scratch.
				return
			}
			if err := rs.Resubscribe(ctx); err != nil {
				e.logger.Error("stream-resync-failed",
					zap.String("venue", v.Name()), zap.Error(err))
				return
			}
		}
	}
}
