// Package execution places the two legs of a sized opportunity and
// reconciles the outcome, including the delayed-success case where a
// venue errors to the caller while filling the order server-side.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/crossarb/crossarb/internal/coordinator"
	"github.com/crossarb/crossarb/internal/sizing"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome is the terminal state of one paired-order attempt.
type Outcome string

const (
	// BothFilled: both legs placed and filled.
	BothFilled Outcome = "both_filled"
	// PartialFilled: one leg reported failure but balance reconciliation
	// showed the trade completed economically.
	PartialFilled Outcome = "partial_filled"
	// BothFailed: neither leg went through; no state changed.
	BothFailed Outcome = "both_failed"
	// Simulated: dry-run mode, nothing was sent to any venue.
	Simulated Outcome = "simulated"
)

// Result reports what happened to one opportunity.
type Result struct {
	Outcome   Outcome
	Quote     *sizing.Quote
	BuyOrder  *types.Order
	SellOrder *types.Order
}

const (
	defaultFillTimeout    = 30 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	defaultBaseTolerance  = "0.05"
	defaultCreditFraction = "0.1"
)

// Config holds execution controller parameters.
type Config struct {
	Coordinator *coordinator.Coordinator
	Logger      *zap.Logger

	// FillTimeout bounds how long a leg waits for its order to close.
	// Expiry means "did not fill", not "order is dead": reconciliation
	// decides from balances.
	FillTimeout  time.Duration
	PollInterval time.Duration

	// BaseTolerance is the fraction of the intended volume within which
	// the net base-currency movement must land for a one-leg failure to
	// count as a delayed success.
	BaseTolerance decimal.Decimal

	// CreditFraction of each trade's net profit is banked as quote-side
	// transfer credit for rebalancing.
	CreditFraction decimal.Decimal

	// DryRun logs opportunities without placing orders.
	DryRun bool
}

// Controller executes opportunities one at a time.
type Controller struct {
	config Config
	coord  *coordinator.Coordinator
	logger *zap.Logger
}

// New creates an execution controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.FillTimeout <= 0 {
		cfg.FillTimeout = defaultFillTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BaseTolerance.IsZero() {
		cfg.BaseTolerance = decimal.RequireFromString(defaultBaseTolerance)
	}
	if cfg.CreditFraction.IsZero() {
		cfg.CreditFraction = decimal.RequireFromString(defaultCreditFraction)
	}
	return &Controller{config: cfg, coord: cfg.Coordinator, logger: cfg.Logger}, nil
}

type legResult struct {
	order *types.Order
	err   error
}

// Execute places the buy and sell legs concurrently, waits for both to
// reach a terminal state and reconciles the outcome. Both legs are
// submitted before either is awaited, keeping the window in which the
// quoted prices can move as small as possible.
func (c *Controller) Execute(ctx context.Context, q *sizing.Quote) (*Result, error) {
	buyVenue := c.coord.Venue(q.BuyVenue)
	sellVenue := c.coord.Venue(q.SellVenue)
	if buyVenue == nil || sellVenue == nil {
		return nil, fmt.Errorf("unknown venue in quote %s: %s/%s", q.ID, q.BuyVenue, q.SellVenue)
	}

	c.logger.Info("opportunity-executing",
		zap.String("quote-id", q.ID),
		zap.String("pair", q.Pair.String()),
		zap.String("buy-venue", q.BuyVenue),
		zap.String("sell-venue", q.SellVenue),
		zap.String("volume", q.Volume.String()),
		zap.String("net-profit", q.NetProfit.String()),
		zap.String("net-profit-pct", q.NetProfitPct.String()),
		zap.Bool("dry-run", c.config.DryRun))

	if c.config.DryRun {
		ExecutionsTotal.WithLabelValues(string(Simulated)).Inc()
		return &Result{Outcome: Simulated, Quote: q}, nil
	}

	totalsBefore := c.coord.Totals()

	buyCh := make(chan legResult, 1)
	sellCh := make(chan legResult, 1)
	go func() {
		order, err := c.placeAndWait(ctx, buyVenue, q.Pair, types.Buy, q.BuyLimitPrice, q.Volume)
		buyCh <- legResult{order, err}
	}()
	go func() {
		order, err := c.placeAndWait(ctx, sellVenue, q.Pair, types.Sell, q.SellLimitPrice, q.Volume)
		sellCh <- legResult{order, err}
	}()
	buy, sell := <-buyCh, <-sellCh

	switch {
	case buy.err == nil && sell.err == nil:
		return c.settle(ctx, q, &Result{
			Outcome:   BothFilled,
			Quote:     q,
			BuyOrder:  buy.order,
			SellOrder: sell.order,
		})

	case buy.err != nil && sell.err != nil:
		c.logger.Warn("paired-order-failed",
			zap.String("quote-id", q.ID),
			zap.NamedError("buy-error", buy.err),
			zap.NamedError("sell-error", sell.err))
		ExecutionsTotal.WithLabelValues(string(BothFailed)).Inc()
		return &Result{Outcome: BothFailed, Quote: q}, nil

	default:
		return c.reconcile(ctx, q, totalsBefore, buy, sell)
	}
}

// placeAndWait submits one limit order and polls until it closes or the
// fill timeout expires.
func (c *Controller) placeAndWait(ctx context.Context, v *venue.State, pair types.Pair,
	side types.OrderSide, price, volume decimal.Decimal) (*types.Order, error) {

	start := time.Now()
	orderID, err := v.Client().LimitOrder(ctx, pair, side, price, volume)
	if err != nil {
		LegFailuresTotal.WithLabelValues(v.Name(), string(side)).Inc()
		return nil, fmt.Errorf("place %s %s on %s: %w", side, pair, v.Name(), err)
	}
	if orderID == "" {
		LegFailuresTotal.WithLabelValues(v.Name(), string(side)).Inc()
		return nil, fmt.Errorf("place %s %s on %s: rejected without order id", side, pair, v.Name())
	}

	deadline := time.NewTimer(c.config.FillTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(c.config.PollInterval)
	defer tick.Stop()

	for {
		order, err := v.Client().Order(ctx, orderID)
		if err == nil && !order.Open {
			FillLatency.WithLabelValues(v.Name()).Observe(time.Since(start).Seconds())
			return order, nil
		}
		if err != nil && !types.Retryable(err) {
			LegFailuresTotal.WithLabelValues(v.Name(), string(side)).Inc()
			return nil, fmt.Errorf("poll order %s on %s: %w", orderID, v.Name(), err)
		}

		select {
		case <-tick.C:
		case <-deadline.C:
			LegFailuresTotal.WithLabelValues(v.Name(), string(side)).Inc()
			return nil, &types.TimeoutError{Venue: v.Name(), Op: "order fill"}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// reconcile handles the one-leg-failed case. Venues sometimes report an
// error to the caller while completing the trade server-side, so actual
// balances are checked before declaring a genuine partial failure.
func (c *Controller) reconcile(ctx context.Context, q *sizing.Quote,
	totalsBefore map[string]decimal.Decimal, buy, sell legResult) (*Result, error) {

	filledSide := types.Buy
	legErr := sell.err
	if buy.err != nil {
		filledSide = types.Sell
		legErr = buy.err
	}

	c.logger.Warn("paired-order-leg-failed",
		zap.String("quote-id", q.ID),
		zap.String("filled-side", string(filledSide)),
		zap.Error(legErr))

	if err := c.coord.RefreshBalances(ctx); err != nil {
		return nil, fmt.Errorf("reconcile refresh: %w", err)
	}
	totalsAfter := c.coord.Totals()

	baseDelta := totalsAfter[q.Pair.Base].Sub(totalsBefore[q.Pair.Base])
	quoteDelta := totalsAfter[q.Pair.Quote].Sub(totalsBefore[q.Pair.Quote])

	// A completed round trip moves no base overall and earns quote.
	tolerance := q.Volume.Mul(c.config.BaseTolerance)
	if baseDelta.Abs().LessThanOrEqual(tolerance) && quoteDelta.IsPositive() {
		c.logger.Info("delayed-success",
			zap.String("quote-id", q.ID),
			zap.String("base-delta", baseDelta.String()),
			zap.String("quote-delta", quoteDelta.String()))
		return c.settle(ctx, q, &Result{
			Outcome:   PartialFilled,
			Quote:     q,
			BuyOrder:  buy.order,
			SellOrder: sell.order,
		})
	}

	ExecutionsTotal.WithLabelValues("partial_failure").Inc()
	return nil, &types.PartialExecutionError{
		BuyVenue:   q.BuyVenue,
		SellVenue:  q.SellVenue,
		Pair:       q.Pair,
		FilledSide: filledSide,
	}
}

// settle records a successful round trip: order history, transfer-fee
// credits and a balance refresh.
func (c *Controller) settle(ctx context.Context, q *sizing.Quote, res *Result) (*Result, error) {
	now := time.Now()
	c.coord.RecordOrder(types.OrderRecord{
		Side: types.Buy, Pair: q.Pair, VenueName: q.BuyVenue, PlacedAt: now,
	})
	c.coord.RecordOrder(types.OrderRecord{
		Side: types.Sell, Pair: q.Pair, VenueName: q.SellVenue, PlacedAt: now,
	})

	// The quote already budgeted one base withdrawal; bank it so the
	// rebalancer can spend it. A slice of the profit funds quote-side
	// transfers.
	if q.BuyPrice.IsPositive() {
		c.coord.AddTransferCredit(q.Pair.Base, q.TransferFee.Div(q.BuyPrice))
	}
	c.coord.AddTransferCredit(q.Pair.Quote, q.NetProfit.Mul(c.config.CreditFraction))

	if err := c.coord.RefreshBalances(ctx); err != nil {
		c.logger.Warn("post-trade-refresh-failed",
			zap.String("quote-id", q.ID), zap.Error(err))
	}

	ExecutionsTotal.WithLabelValues(string(res.Outcome)).Inc()
	ProfitRealized.Add(q.NetProfit.InexactFloat64())
	c.logger.Info("opportunity-settled",
		zap.String("quote-id", q.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("net-profit", q.NetProfit.String()))
	return res, nil
}
