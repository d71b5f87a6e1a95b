// Package engine runs the arbitrage loop: refresh state on schedule,
// find the best opportunity across all venue pairs and hand it to the
// execution controller.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/crossarb/crossarb/internal/coordinator"
	"github.com/crossarb/crossarb/internal/execution"
	"github.com/crossarb/crossarb/internal/sizing"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/retry"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCycleInterval     = 2 * time.Second
	defaultRefreshInterval   = 30 * time.Second
	defaultRebalanceInterval = 10 * time.Minute
	defaultSweepInterval     = time.Hour
	defaultTableInterval     = time.Minute
)

// Config holds engine construction parameters.
type Config struct {
	Coordinator *coordinator.Coordinator
	Sizer       *sizing.Sizer
	Controller  *execution.Controller
	// Store is optional; nil disables persistence.
	Store storage.Storage

	Pairs      []types.Pair
	Currencies types.CurrencyTable
	Logger     *zap.Logger

	// MinProfitPct is the margin floor below which an opportunity is
	// left on the table.
	MinProfitPct decimal.Decimal

	CycleInterval     time.Duration
	RefreshInterval   time.Duration
	RebalanceInterval time.Duration
	SweepInterval     time.Duration
	TableInterval     time.Duration
}

// Engine is the sequential arbitrage loop. It reads already-updated
// shared state, decides and dispatches; it never blocks waiting on a
// price update.
type Engine struct {
	config Config
	coord  *coordinator.Coordinator
	sizer  *sizing.Sizer
	exec   *execution.Controller
	logger *zap.Logger

	refresh   *runEvery
	rebalance *runEvery
	sweep     *runEvery
	table     *runEvery

	subscribePolicy retry.Policy
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Coordinator == nil || cfg.Sizer == nil || cfg.Controller == nil {
		return nil, fmt.Errorf("coordinator, sizer and controller are required")
	}
	if len(cfg.Pairs) == 0 {
		return nil, fmt.Errorf("at least one pair is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = defaultCycleInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.RebalanceInterval <= 0 {
		cfg.RebalanceInterval = defaultRebalanceInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.TableInterval <= 0 {
		cfg.TableInterval = defaultTableInterval
	}

	return &Engine{
		config:          cfg,
		coord:           cfg.Coordinator,
		sizer:           cfg.Sizer,
		exec:            cfg.Controller,
		logger:          cfg.Logger,
		refresh:         newRunEvery(cfg.RefreshInterval),
		rebalance:       newRunEvery(cfg.RebalanceInterval),
		sweep:           newRunEvery(cfg.SweepInterval),
		table:           newRunEvery(cfg.TableInterval),
		subscribePolicy: defaultSubscribePolicy,
	}, nil
}

// Run blocks driving the loop until the context ends. Venue-scoped
// failures are contained behind the circuit breakers; only client
// errors and context cancellation stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine-starting",
		zap.Int("pairs", len(e.config.Pairs)),
		zap.Duration("cycle-interval", e.config.CycleInterval))

	if err := e.coord.RefreshBalances(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	e.startStreams(ctx)

	ticker := time.NewTicker(e.config.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine-stopping")
			return ctx.Err()
		case <-ticker.C:
		}

		if err := e.cycle(ctx); err != nil {
			return err
		}
	}
}

func (e *Engine) cycle(ctx context.Context) error {
	started := time.Now()
	CyclesTotal.Inc()

	if err := e.coord.ProbeBreakers(ctx); err != nil {
		return fmt.Errorf("breaker probe: %w", err)
	}
	e.runManagement(ctx)

	quote, err := e.FindBest(ctx)
	if err != nil {
		// Sizing failures mean this cycle's view is unusable; skip it
		// rather than act on corrupted state.
		e.logger.Warn("opportunity-search-failed", zap.Error(err))
		return nil
	}
	if quote == nil {
		CycleDuration.Observe(time.Since(started).Seconds())
		return nil
	}

	OpportunitiesFoundTotal.Inc()
	e.storeQuote(ctx, quote)

	res, err := e.exec.Execute(ctx, quote)
	if err != nil {
		// A partial execution leaves a one-sided position; keep running
		// but make sure the operator sees it.
		e.logger.Error("execution-failed",
			zap.String("quote-id", quote.ID), zap.Error(err))
		return nil
	}
	e.storeResult(ctx, res)

	CycleDuration.Observe(time.Since(started).Seconds())
	return nil
}

func (e *Engine) runManagement(ctx context.Context) {
	now := time.Now()

	if e.refresh.Due(now) {
		if err := e.coord.RefreshBalances(ctx); err != nil {
			e.logger.Error("scheduled-refresh-failed", zap.Error(err))
		}
	}
	if e.sweep.Due(now) {
		e.coord.SweepBankAccounts(ctx)
	}
	if e.rebalance.Due(now) {
		for _, currency := range e.rebalanceCurrencies() {
			e.coord.Rebalance(ctx, currency)
		}
	}
	if e.table.Due(now) {
		e.logMarketTable()
	}
}

// rebalanceCurrencies derives the currency universe from the traded
// pairs, base currencies first.
func (e *Engine) rebalanceCurrencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, pair := range e.config.Pairs {
		if !seen[pair.Base] {
			seen[pair.Base] = true
			out = append(out, pair.Base)
		}
	}
	for _, pair := range e.config.Pairs {
		if !seen[pair.Quote] {
			seen[pair.Quote] = true
			out = append(out, pair.Quote)
		}
	}
	return out
}

// FindBest sizes every eligible (buy venue, sell venue) combination for
// every pair and returns the best quote at or above the margin floor,
// nil when nothing qualifies.
func (e *Engine) FindBest(ctx context.Context) (*sizing.Quote, error) {
	var best *sizing.Quote

	for _, pair := range e.config.Pairs {
		buys := e.coord.EligibleBuyVenues(pair)
		sells := e.coord.EligibleSellVenues(pair)
		minOrder := e.config.Currencies.Info(pair.Base).MinOrderSize

		for _, buy := range buys {
			for _, sell := range sells {
				if buy.Name() == sell.Name() {
					continue
				}

				maxVolume, err := e.maxVolume(pair, buy, sell)
				if err != nil {
					return nil, err
				}
				if maxVolume.LessThan(minOrder) {
					continue
				}

				quote, err := e.sizer.Quote(ctx, buy, sell, pair, maxVolume)
				if err != nil {
					return nil, fmt.Errorf("size %s %s->%s: %w",
						pair, buy.Name(), sell.Name(), err)
				}
				if quote == nil || quote.Volume.LessThan(minOrder) {
					continue
				}
				if best == nil || quote.NetProfitPct.GreaterThan(best.NetProfitPct) {
					best = quote
				}
			}
		}
	}

	if best == nil || best.NetProfitPct.LessThan(e.config.MinProfitPct) {
		return nil, nil
	}
	return best, nil
}

// maxVolume bounds a trade by what the buy venue can pay for and the
// sell venue can deliver.
func (e *Engine) maxVolume(pair types.Pair, buy, sell *venue.State) (decimal.Decimal, error) {
	ask, err := buy.Books().BestAsk(pair)
	if err != nil {
		return decimal.Zero, err
	}
	affordable := buy.Balance(pair.Quote).Div(ask)
	return decimal.Min(affordable, sell.Balance(pair.Base)), nil
}

func (e *Engine) storeQuote(ctx context.Context, q *sizing.Quote) {
	if e.config.Store == nil {
		return
	}
	if err := e.config.Store.StoreQuote(ctx, q); err != nil {
		e.logger.Warn("quote-store-failed",
			zap.String("quote-id", q.ID), zap.Error(err))
	}
}

func (e *Engine) storeResult(ctx context.Context, res *execution.Result) {
	if e.config.Store == nil {
		return
	}
	if err := e.config.Store.StoreExecution(ctx, res); err != nil {
		e.logger.Warn("execution-store-failed",
			zap.String("quote-id", res.Quote.ID), zap.Error(err))
	}
}

// logMarketTable logs every venue's top of book per pair, the
// operator's periodic view of the spread landscape.
func (e *Engine) logMarketTable() {
	for _, pair := range e.config.Pairs {
		fields := []zap.Field{zap.String("pair", pair.String())}
		for _, v := range e.coord.Venues() {
			if !v.Books().Initialized(pair) {
				continue
			}
			bid, bidErr := v.Books().BestBid(pair)
			ask, askErr := v.Books().BestAsk(pair)
			if bidErr == nil {
				fields = append(fields, zap.String(v.Name()+"-bid", bid.String()))
			}
			if askErr == nil {
				fields = append(fields, zap.String(v.Name()+"-ask", ask.String()))
			}
		}
		e.logger.Info("market-table", fields...)
	}
}
