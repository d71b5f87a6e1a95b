package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that drop an opportunity silently
// rather than surfacing as failures.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBelowMinimumOrder = errors.New("below minimum order size")
)

// SequenceError reports a gap in a venue's sequenced book feed. The book
// is inconsistent and the caller must re-synchronize; it is never patched
// silently.
type SequenceError struct {
	Venue    string
	Pair     Pair
	Expected int64
	Received int64
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s %s: sequence gap: expected %d, received %d",
		e.Venue, e.Pair, e.Expected, e.Received)
}

// NotInitializedError indicates a book query before any snapshot was
// applied for the pair.
type NotInitializedError struct {
	Venue string
	Pair  Pair
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s %s: order book not initialized", e.Venue, e.Pair)
}

// ClientError is a caller/request mistake reported by a venue. It is not
// retryable and must be surfaced.
type ClientError struct {
	Venue   string
	Op      string
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s %s: client error: %s", e.Venue, e.Op, e.Message)
}

// ServerError is a transient venue-side failure. Retried with backoff;
// beyond the retry budget it trips the venue's circuit breaker.
type ServerError struct {
	Venue   string
	Op      string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s %s: server error: %s", e.Venue, e.Op, e.Message)
}

// TimeoutError is the absence of a response within the deadline. Treated
// like a ServerError for retry purposes.
type TimeoutError struct {
	Venue string
	Op    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: timed out", e.Venue, e.Op)
}

// PartialExecutionError reports that exactly one leg of a paired trade
// went through and balance reconciliation found no delayed success. No
// automatic unwind is attempted; an operator has a one-sided position.
type PartialExecutionError struct {
	BuyVenue   string
	SellVenue  string
	Pair       Pair
	FilledSide OrderSide
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("partial execution %s: %s leg filled (buy %s / sell %s), other leg lost",
		e.Pair, e.FilledSide, e.BuyVenue, e.SellVenue)
}

// Retryable reports whether err is a transient venue failure worth
// retrying (and, past the retry budget, a circuit-breaker trip).
func Retryable(err error) bool {
	var srv *ServerError
	var to *TimeoutError
	return errors.As(err, &srv) || errors.As(err, &to)
}
