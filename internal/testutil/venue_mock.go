// Package testutil provides shared fakes for core tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// MockVenueClient is a configurable in-memory implementation of the
// venue client contract. Zero-value behavior is a healthy venue with no
// balances; tests override the function fields they care about.
type MockVenueClient struct {
	VenueName string

	InitFunc           func(ctx context.Context) (*types.VenueInfo, error)
	BalancesFunc       func(ctx context.Context) (map[string]decimal.Decimal, error)
	BidAskFunc         func(ctx context.Context, pair types.Pair) (types.BidAsk, error)
	LimitOrderFunc     func(ctx context.Context, pair types.Pair, side types.OrderSide, price, volume decimal.Decimal) (string, error)
	OrderFunc          func(ctx context.Context, orderID string) (*types.Order, error)
	DepositAddressFunc func(ctx context.Context, currency string) (string, error)
	WithdrawFunc       func(ctx context.Context, currency, address string, amount decimal.Decimal) error
	WithdrawFeeFunc    func(ctx context.Context, currency string) (decimal.Decimal, error)
	FeeRateFunc        func(ctx context.Context, pair types.Pair) (decimal.Decimal, error)

	mu         sync.Mutex
	placed     []PlacedOrder
	withdrawal []Withdrawal
}

// PlacedOrder records one LimitOrder call.
type PlacedOrder struct {
	Pair   types.Pair
	Side   types.OrderSide
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// Withdrawal records one Withdraw call.
type Withdrawal struct {
	Currency string
	Address  string
	Amount   decimal.Decimal
}

func (m *MockVenueClient) Name() string { return m.VenueName }

func (m *MockVenueClient) Init(ctx context.Context) (*types.VenueInfo, error) {
	if m.InitFunc != nil {
		return m.InitFunc(ctx)
	}
	return &types.VenueInfo{
		FeeRates:     map[string]decimal.Decimal{},
		WithdrawFees: map[string]decimal.Decimal{},
	}, nil
}

func (m *MockVenueClient) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if m.BalancesFunc != nil {
		return m.BalancesFunc(ctx)
	}
	return map[string]decimal.Decimal{}, nil
}

func (m *MockVenueClient) BidAsk(ctx context.Context, pair types.Pair) (types.BidAsk, error) {
	if m.BidAskFunc != nil {
		return m.BidAskFunc(ctx, pair)
	}
	return types.BidAsk{}, fmt.Errorf("no bid/ask configured for %s", pair)
}

func (m *MockVenueClient) LimitOrder(ctx context.Context, pair types.Pair, side types.OrderSide, price, volume decimal.Decimal) (string, error) {
	m.mu.Lock()
	m.placed = append(m.placed, PlacedOrder{Pair: pair, Side: side, Price: price, Volume: volume})
	m.mu.Unlock()

	if m.LimitOrderFunc != nil {
		return m.LimitOrderFunc(ctx, pair, side, price, volume)
	}
	return fmt.Sprintf("%s-order-%d", m.VenueName, len(m.placed)), nil
}

func (m *MockVenueClient) Order(ctx context.Context, orderID string) (*types.Order, error) {
	if m.OrderFunc != nil {
		return m.OrderFunc(ctx, orderID)
	}
	return &types.Order{ID: orderID, Open: false}, nil
}

func (m *MockVenueClient) DepositAddress(ctx context.Context, currency string) (string, error) {
	if m.DepositAddressFunc != nil {
		return m.DepositAddressFunc(ctx, currency)
	}
	return m.VenueName + "-" + currency + "-addr", nil
}

func (m *MockVenueClient) Withdraw(ctx context.Context, currency, address string, amount decimal.Decimal) error {
	m.mu.Lock()
	m.withdrawal = append(m.withdrawal, Withdrawal{Currency: currency, Address: address, Amount: amount})
	m.mu.Unlock()

	if m.WithdrawFunc != nil {
		return m.WithdrawFunc(ctx, currency, address, amount)
	}
	return nil
}

func (m *MockVenueClient) WithdrawFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	if m.WithdrawFeeFunc != nil {
		return m.WithdrawFeeFunc(ctx, currency)
	}
	return decimal.Zero, nil
}

func (m *MockVenueClient) FeeRate(ctx context.Context, pair types.Pair) (decimal.Decimal, error) {
	if m.FeeRateFunc != nil {
		return m.FeeRateFunc(ctx, pair)
	}
	return decimal.Zero, nil
}

// PlacedOrders returns all LimitOrder calls seen so far.
func (m *MockVenueClient) PlacedOrders() []PlacedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PlacedOrder, len(m.placed))
	copy(out, m.placed)
	return out
}

// Withdrawals returns all Withdraw calls seen so far.
func (m *MockVenueClient) Withdrawals() []Withdrawal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Withdrawal, len(m.withdrawal))
	copy(out, m.withdrawal)
	return out
}
