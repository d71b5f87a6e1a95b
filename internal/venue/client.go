package venue

import (
	"context"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// Client is the contract every venue adapter implements. Adapters live
// outside the core; the core only sees these calls. Errors must be
// distinguishable per the pkg/types taxonomy so retry and breaker logic
// can classify them.
type Client interface {
	Name() string

	// Init is the one-time blocking setup call fetching supported pairs
	// and the fee schedule.
	Init(ctx context.Context) (*types.VenueInfo, error)

	// Balances returns available trading balances per currency.
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)

	// BidAsk returns a polled top-of-book observation.
	BidAsk(ctx context.Context, pair types.Pair) (types.BidAsk, error)

	// LimitOrder places a limit order and returns its ID, or "" when the
	// venue rejected it without an error worth surfacing.
	LimitOrder(ctx context.Context, pair types.Pair, side types.OrderSide, price, volume decimal.Decimal) (string, error)

	// Order returns the current state of a placed order for fill polling.
	Order(ctx context.Context, orderID string) (*types.Order, error)

	// DepositAddress returns an address funds can be sent to.
	DepositAddress(ctx context.Context, currency string) (string, error)

	// Withdraw sends funds to an external address.
	Withdraw(ctx context.Context, currency, address string, amount decimal.Decimal) error

	// WithdrawFee returns the current flat withdrawal fee for a currency.
	WithdrawFee(ctx context.Context, currency string) (decimal.Decimal, error)

	// FeeRate returns the trading fee fraction for a pair.
	FeeRate(ctx context.Context, pair types.Pair) (decimal.Decimal, error)
}

// StreamingPriceSource is implemented by adapters that push sequenced
// book deltas instead of being polled.
type StreamingPriceSource interface {
	// Subscribe starts the venue's book stream for the given pairs. The
	// channel closes when the stream ends; the consumer owns applying
	// updates and resubscribing after a sequence gap.
	Subscribe(ctx context.Context, pairs []types.Pair) (<-chan types.SequencedUpdate, error)
}

// BankTransferCapable is implemented by venues that hold funds in a
// separate bank account that must be swept into the trading account
// before the balance is usable.
type BankTransferCapable interface {
	BankBalances(ctx context.Context) (map[string]decimal.Decimal, error)
	BankToTrading(ctx context.Context, currency string, amount decimal.Decimal) error
}
