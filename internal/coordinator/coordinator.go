// Package coordinator owns venue eligibility and capital allocation: it
// refreshes balances across venues concurrently, isolates failing venues
// behind their circuit breakers, and periodically redistributes funds so
// future opportunities stay executable.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRefreshTimeout     = 10 * time.Second
	defaultFreshnessThreshold = 30 * time.Second
	defaultHistoryLimit       = 256
	defaultHistoryWindow      = 15 * time.Minute
)

// Config holds coordinator construction parameters.
type Config struct {
	Venues     []*venue.State
	Currencies types.CurrencyTable
	Logger     *zap.Logger

	// RefreshTimeout bounds each venue's balance query during a refresh
	// fan-out. A timed-out venue trips its breaker instead of stalling
	// the whole refresh.
	RefreshTimeout time.Duration

	// FreshnessThreshold is the maximum book age before a venue stops
	// being eligible for opportunity search.
	FreshnessThreshold time.Duration

	// HistoryLimit caps the in-memory order history; HistoryWindow is
	// how far back rebalancing looks when weighting venue choice.
	HistoryLimit  int
	HistoryWindow time.Duration
}

// Coordinator tracks a fixed set of venues. The venue set never changes
// after construction; per-venue mutable state lives inside each
// venue.State behind its own lock.
type Coordinator struct {
	config  Config
	logger  *zap.Logger
	venues  map[string]*venue.State
	ordered []*venue.State

	mu      sync.Mutex
	history []types.OrderRecord
	credits map[string]decimal.Decimal

	now func() time.Time
}

// New creates a coordinator over the configured venues.
func New(cfg Config) (*Coordinator, error) {
	if len(cfg.Venues) == 0 {
		return nil, fmt.Errorf("at least one venue is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = defaultRefreshTimeout
	}
	if cfg.FreshnessThreshold <= 0 {
		cfg.FreshnessThreshold = defaultFreshnessThreshold
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}

	venues := make(map[string]*venue.State, len(cfg.Venues))
	for _, v := range cfg.Venues {
		if _, dup := venues[v.Name()]; dup {
			return nil, fmt.Errorf("duplicate venue %s", v.Name())
		}
		venues[v.Name()] = v
	}

	return &Coordinator{
		config:  cfg,
		logger:  cfg.Logger,
		venues:  venues,
		ordered: cfg.Venues,
		credits: make(map[string]decimal.Decimal),
		now:     time.Now,
	}, nil
}

// Venue returns the named venue, nil if unknown.
func (c *Coordinator) Venue(name string) *venue.State {
	return c.venues[name]
}

// Venues returns all venues in configuration order.
func (c *Coordinator) Venues() []*venue.State {
	return c.ordered
}

// Init runs every venue's one-time setup call concurrently. A venue
// whose init fails transiently is left behind a tripped breaker rather
// than aborting startup; a non-retryable failure aborts, since it means
// the configuration is wrong.
func (c *Coordinator) Init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, v := range c.ordered {
		v := v
		g.Go(func() error {
			if err := v.Init(gctx); err != nil {
				if types.Retryable(err) {
					c.logger.Warn("venue-init-failed",
						zap.String("venue", v.Name()), zap.Error(err))
					v.Breaker().Trip(v.Init, types.Retryable)
					return nil
				}
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// RefreshBalances issues one balance query per healthy venue
// concurrently and waits for all to complete. A venue that fails with a
// retryable error trips its breaker and is excluded from opportunity
// search until a probe succeeds; a client error is surfaced because it
// means our request is wrong, not the venue.
func (c *Coordinator) RefreshBalances(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, v := range c.ordered {
		if v.Breaker().Tripped() {
			continue
		}
		v := v
		g.Go(func() error {
			err := c.refreshVenue(gctx, v)
			if err == nil {
				return nil
			}

			RefreshErrorsTotal.WithLabelValues(v.Name()).Inc()

			var clientErr *types.ClientError
			if errors.As(err, &clientErr) {
				return err
			}

			// Anything else, retryable or not, is contained at the
			// venue boundary: the breaker keeps retrying the refresh
			// until the venue answers again.
			c.logger.Warn("balance-refresh-failed",
				zap.String("venue", v.Name()), zap.Error(err))
			v.Breaker().Trip(func(ctx context.Context) error {
				return c.refreshVenue(ctx, v)
			}, types.Retryable)
			return nil
		})
	}
	return g.Wait()
}

func (c *Coordinator) refreshVenue(ctx context.Context, v *venue.State) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RefreshTimeout)
	defer cancel()

	balances, err := v.Client().Balances(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &types.TimeoutError{Venue: v.Name(), Op: "balances"}
		}
		return fmt.Errorf("balances %s: %w", v.Name(), err)
	}

	v.SetBalances(balances)
	BalanceRefreshesTotal.WithLabelValues(v.Name()).Inc()
	return nil
}

// ProbeBreakers re-invokes the recorded retry action for every tripped
// venue. Called at the top of each coordination cycle, before
// eligibility is evaluated.
func (c *Coordinator) ProbeBreakers(ctx context.Context) error {
	for _, v := range c.ordered {
		if !v.Breaker().Tripped() {
			continue
		}
		if err := v.Breaker().Probe(ctx); err != nil {
			return fmt.Errorf("probe %s: %w", v.Name(), err)
		}
	}
	return nil
}

// EligibleBuyVenues returns venues that can act as the buy side for the
// pair: pair supported, breaker clear, book fresh, and enough quote
// currency on hand to clear the pair's minimum order notional.
func (c *Coordinator) EligibleBuyVenues(pair types.Pair) []*venue.State {
	return c.eligible(pair, func(v *venue.State) bool {
		ask, err := v.Books().BestAsk(pair)
		if err != nil {
			return false
		}
		minNotional := c.config.Currencies.Info(pair.Base).MinOrderSize.Mul(ask)
		return v.Balance(pair.Quote).GreaterThan(minNotional)
	})
}

// EligibleSellVenues returns venues that can act as the sell side:
// same gates, with the base-currency balance against the pair's
// minimum order size.
func (c *Coordinator) EligibleSellVenues(pair types.Pair) []*venue.State {
	return c.eligible(pair, func(v *venue.State) bool {
		minSize := c.config.Currencies.Info(pair.Base).MinOrderSize
		return v.Balance(pair.Base).GreaterThan(minSize)
	})
}

func (c *Coordinator) eligible(pair types.Pair, funded func(*venue.State) bool) []*venue.State {
	var out []*venue.State
	for _, v := range c.ordered {
		if !v.SupportsPair(pair) || v.Breaker().Tripped() {
			continue
		}
		age, err := v.Books().Freshness(pair)
		if err != nil || age > c.config.FreshnessThreshold {
			continue
		}
		if !funded(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// RecordOrder appends a successfully placed order to the in-memory
// history. The history only weights venue choice during rebalancing;
// it is never replayed for correctness.
func (c *Coordinator) RecordOrder(rec types.OrderRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, rec)
	if len(c.history) > c.config.HistoryLimit {
		c.history = c.history[len(c.history)-c.config.HistoryLimit:]
	}
}

// OrderHistory returns a copy of the recorded orders, oldest first.
func (c *Coordinator) OrderHistory() []types.OrderRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.OrderRecord, len(c.history))
	copy(out, c.history)
	return out
}

// recentConsumers counts recent orders on a venue that spent the given
// currency. Used to weight creditor choice during rebalancing.
func (c *Coordinator) recentConsumers(venueName, currency string) int {
	cutoff := c.now().Add(-c.config.HistoryWindow)

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, rec := range c.history {
		if rec.VenueName == venueName && rec.Consumes(currency) && rec.PlacedAt.After(cutoff) {
			n++
		}
	}
	return n
}

// AddTransferCredit banks profit earmarked for moving a currency
// between venues. Execution deposits a credit out of each trade's net
// profit; rebalancing spends it.
func (c *Coordinator) AddTransferCredit(currency string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.credits[currency].Add(amount)
	c.credits[currency] = next
	TransferCredits.WithLabelValues(currency).Set(next.InexactFloat64())
}

// TransferCredit returns the banked credit for a currency.
func (c *Coordinator) TransferCredit(currency string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credits[currency]
}

func (c *Coordinator) spendTransferCredit(currency string, amount decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.credits[currency].LessThan(amount) {
		return false
	}
	next := c.credits[currency].Sub(amount)
	c.credits[currency] = next
	TransferCredits.WithLabelValues(currency).Set(next.InexactFloat64())
	return true
}

// Totals sums cached balances across all venues per currency.
func (c *Coordinator) Totals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, v := range c.ordered {
		for currency, amount := range v.Balances() {
			totals[currency] = totals[currency].Add(amount)
		}
	}
	return totals
}

// SweepBankAccounts moves idle bank-account funds into the trading
// account on every venue that separates the two. Venues without a bank
// account are skipped.
func (c *Coordinator) SweepBankAccounts(ctx context.Context) {
	for _, v := range c.ordered {
		bank, ok := v.Client().(venue.BankTransferCapable)
		if !ok || v.Breaker().Tripped() {
			continue
		}

		balances, err := bank.BankBalances(ctx)
		if err != nil {
			c.logger.Warn("bank-balance-query-failed",
				zap.String("venue", v.Name()), zap.Error(err))
			continue
		}

		currencies := make([]string, 0, len(balances))
		for currency := range balances {
			currencies = append(currencies, currency)
		}
		sort.Strings(currencies)

		for _, currency := range currencies {
			amount := balances[currency]
			if amount.LessThan(c.config.Currencies.Info(currency).MinTransferSize) {
				continue
			}
			if err := bank.BankToTrading(ctx, currency, amount); err != nil {
				c.logger.Warn("bank-sweep-failed",
					zap.String("venue", v.Name()),
					zap.String("currency", currency),
					zap.Error(err))
				continue
			}
			v.AdjustBalance(currency, amount)
			c.logger.Info("bank-sweep",
				zap.String("venue", v.Name()),
				zap.String("currency", currency),
				zap.String("amount", amount.String()))
		}
	}
}
