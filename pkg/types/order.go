package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the venue's view of a placed order, as returned by fill
// polling.
type Order struct {
	ID           string
	Pair         Pair
	Side         OrderSide
	Price        decimal.Decimal
	Volume       decimal.Decimal
	FilledVolume decimal.Decimal
	Open         bool
}

// OrderRecord is an in-memory note that an order was placed on a venue.
// It only weights venue choice during rebalancing and is never replayed
// for correctness.
type OrderRecord struct {
	Side      OrderSide
	Pair      Pair
	VenueName string
	PlacedAt  time.Time
}

// Consumes reports whether the recorded order spent the given currency:
// a buy spends the quote currency, a sell spends the base.
func (r OrderRecord) Consumes(currency string) bool {
	if r.Side == Buy {
		return r.Pair.Quote == currency
	}
	return r.Pair.Base == currency
}

// VenueInfo is the result of a venue's one-time init call.
type VenueInfo struct {
	SupportedPairs []Pair
	// FeeRates maps pair string to the trading fee fraction charged on
	// both buys and sells of that pair.
	FeeRates map[string]decimal.Decimal
	// WithdrawFees maps currency code to the flat withdrawal fee charged
	// in that currency.
	WithdrawFees map[string]decimal.Decimal
}
