package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBreakerTripAndProbe(t *testing.T) {
	b := NewBreaker("kraken", zap.NewNop())
	assert.False(t, b.Tripped())

	calls := 0
	var retryErr error = &types.ServerError{Venue: "kraken", Op: "balances", Message: "503"}

	b.Trip(func(ctx context.Context) error {
		calls++
		return retryErr
	}, types.Retryable)

	require.True(t, b.Tripped())

	// Recoverable failure: stays tripped, no error surfaced.
	require.NoError(t, b.Probe(context.Background()))
	assert.True(t, b.Tripped())
	assert.Equal(t, 1, calls)

	// Success clears the breaker.
	retryErr = nil
	require.NoError(t, b.Probe(context.Background()))
	assert.False(t, b.Tripped())
	assert.Equal(t, 2, calls)

	// Probing a clear breaker is a no-op.
	require.NoError(t, b.Probe(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestBreakerTripIsIdempotent(t *testing.T) {
	b := NewBreaker("kraken", zap.NewNop())

	first := 0
	b.Trip(func(ctx context.Context) error {
		first++
		return nil
	}, types.Retryable)
	firstTrippedAt := b.TrippedAt()

	// A second failure while tripped must not replace the recorded
	// retry action or timestamp.
	b.Trip(func(ctx context.Context) error {
		t.Fatal("second retry action must not be recorded")
		return nil
	}, types.Retryable)

	assert.Equal(t, firstTrippedAt, b.TrippedAt())
	require.NoError(t, b.Probe(context.Background()))
	assert.Equal(t, 1, first)
	assert.False(t, b.Tripped())
}

func TestBreakerProbeNonRecoverablePropagates(t *testing.T) {
	b := NewBreaker("kraken", zap.NewNop())

	fatal := &types.ClientError{Venue: "kraken", Op: "balances", Message: "bad key"}
	b.Trip(func(ctx context.Context) error {
		return fatal
	}, types.Retryable)

	err := b.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fatal) || err.Error() == fatal.Error())
	assert.True(t, b.Tripped(), "non-recoverable probe failure leaves the breaker tripped")
}
