package storage

import (
	"context"

	"github.com/crossarb/crossarb/internal/execution"
	"github.com/crossarb/crossarb/internal/sizing"
)

// Storage persists sized opportunities and execution outcomes.
type Storage interface {
	// StoreQuote stores a sized opportunity.
	StoreQuote(ctx context.Context, q *sizing.Quote) error

	// StoreExecution stores the terminal outcome of one paired-order
	// attempt.
	StoreExecution(ctx context.Context, res *execution.Result) error

	// Close closes the storage connection.
	Close() error
}
