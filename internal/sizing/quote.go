package sizing

import (
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is an immutable snapshot of a sized opportunity: buy base on
// BuyVenue, sell it on SellVenue. Consumed once by the execution
// controller and then discarded.
type Quote struct {
	ID   string
	Pair types.Pair

	BuyVenue  string
	SellVenue string

	// BuyPrice / SellPrice are volume-weighted averages over the levels
	// the order would consume. The limit prices are the deepest level
	// touched, used as the actual order prices.
	BuyPrice       decimal.Decimal
	BuyLimitPrice  decimal.Decimal
	SellPrice      decimal.Decimal
	SellLimitPrice decimal.Decimal

	Volume decimal.Decimal

	// TransferFee is the buy-side withdrawal fee in quote-currency
	// terms, already subtracted from NetProfit.
	TransferFee  decimal.Decimal
	GrossProfit  decimal.Decimal
	NetProfit    decimal.Decimal
	NetProfitPct decimal.Decimal

	QuotedAt time.Time
}

func newQuote(pair types.Pair, buyVenue, sellVenue string) *Quote {
	return &Quote{
		ID:        uuid.New().String(),
		Pair:      pair,
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		QuotedAt:  time.Now(),
	}
}
