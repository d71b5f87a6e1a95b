package testutil

import (
	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// D parses a decimal literal, panicking on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Level builds a price level from string literals.
func Level(price, qty string) types.PriceLevel {
	return types.PriceLevel{Price: D(price), Quantity: D(qty)}
}

// SeedBook applies a full snapshot to a store so tests can start from a
// known ladder.
func SeedBook(store *orderbook.Store, pair types.Pair, bids, asks []types.PriceLevel) error {
	return store.ApplyUpdate(types.SequencedUpdate{
		Pair: pair,
		Entries: []types.DeltaEntry{
			{Kind: types.EntryInitialize, Bids: bids, Asks: asks},
		},
	})
}
