package types

import "github.com/shopspring/decimal"

// PriceLevel is a single price level on one side of an order book.
// Quantity is always positive; a level whose quantity drops to zero is
// removed from the ladder rather than stored.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// EntryKind discriminates the entries carried by a SequencedUpdate.
type EntryKind string

const (
	// EntryInitialize replaces the whole ladder with a snapshot.
	EntryInitialize EntryKind = "initialize"
	// EntryPriceChange upserts or deletes a single level.
	EntryPriceChange EntryKind = "price_change"
	// EntryTrade is informational and does not mutate the ladder.
	EntryTrade EntryKind = "trade"
)

// DeltaEntry is one element of a sequenced book update. Which fields are
// meaningful depends on Kind: Initialize carries Bids/Asks, PriceChange
// carries Side/Price/Quantity, Trade carries Price/Quantity.
type DeltaEntry struct {
	Kind     EntryKind
	Side     BookSide
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Bids     []PriceLevel
	Asks     []PriceLevel
}

// SequencedUpdate is a batch of book deltas for one pair. Venues that
// number their feed set Seq; for a given pair updates must be applied in
// non-decreasing Seq order, and a gap is a hard inconsistency.
type SequencedUpdate struct {
	Pair    Pair
	Seq     int64
	HasSeq  bool
	Entries []DeltaEntry
}

// BidAsk is a polled top-of-book observation.
type BidAsk struct {
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	ObservedAt int64 // unix milliseconds as reported by the venue
}
