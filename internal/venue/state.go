package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/pkg/feecache"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State is one exchange's live view: cached balances, fee schedule,
// circuit breaker and order books. Balances are authoritative only
// immediately after a refresh; every reader must treat them as stale
// otherwise. Each State has its own lock so a slow venue never blocks
// progress on the others.
type State struct {
	name    string
	client  Client
	books   *orderbook.Store
	breaker *Breaker
	fees    *feecache.Cache
	logger  *zap.Logger

	mu             sync.RWMutex
	balances       map[string]decimal.Decimal
	lastRefresh    time.Time
	supportedPairs map[string]bool
	feeRates       map[string]decimal.Decimal
	withdrawFees   map[string]decimal.Decimal
}

// Config holds venue state construction parameters.
type Config struct {
	Client   Client
	FeeCache *feecache.Cache
	Logger   *zap.Logger
}

// NewState wraps a venue client. Init must be called before the venue is
// considered usable.
func NewState(cfg *Config) (*State, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, fmt.Errorf("venue client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	name := cfg.Client.Name()
	return &State{
		name:           name,
		client:         cfg.Client,
		books:          orderbook.NewStore(name, cfg.Logger),
		breaker:        NewBreaker(name, cfg.Logger),
		fees:           cfg.FeeCache,
		logger:         cfg.Logger,
		balances:       make(map[string]decimal.Decimal),
		supportedPairs: make(map[string]bool),
		feeRates:       make(map[string]decimal.Decimal),
		withdrawFees:   make(map[string]decimal.Decimal),
	}, nil
}

// Name returns the venue's name.
func (s *State) Name() string { return s.name }

// Client returns the underlying adapter.
func (s *State) Client() Client { return s.client }

// Books returns the venue's order book store.
func (s *State) Books() *orderbook.Store { return s.books }

// Breaker returns the venue's circuit breaker.
func (s *State) Breaker() *Breaker { return s.breaker }

// Init performs the one-time blocking setup call and caches its result.
func (s *State) Init(ctx context.Context) error {
	info, err := s.client.Init(ctx)
	if err != nil {
		return fmt.Errorf("init %s: %w", s.name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pair := range info.SupportedPairs {
		s.supportedPairs[pair.String()] = true
	}
	for pair, rate := range info.FeeRates {
		s.feeRates[pair] = rate
	}
	for currency, fee := range info.WithdrawFees {
		s.withdrawFees[currency] = fee
	}

	s.logger.Info("venue-initialized",
		zap.String("venue", s.name),
		zap.Int("pairs", len(info.SupportedPairs)))
	return nil
}

// SupportsPair reports whether the venue trades the pair.
func (s *State) SupportsPair(pair types.Pair) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supportedPairs[pair.String()]
}

// Balance returns the cached balance for a currency, zero if unknown.
func (s *State) Balance(currency string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[currency]
}

// Balances returns a copy of all cached balances.
func (s *State) Balances() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.balances))
	for currency, amount := range s.balances {
		out[currency] = amount
	}
	return out
}

// SetBalances replaces the cached balances atomically with respect to
// readers. Called by the coordinator after a successful refresh and by
// execution after a trade settles.
func (s *State) SetBalances(balances map[string]decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances = make(map[string]decimal.Decimal, len(balances))
	for currency, amount := range balances {
		s.balances[currency] = amount
		BalanceGauge.WithLabelValues(s.name, currency).Set(amount.InexactFloat64())
	}
	s.lastRefresh = time.Now()
}

// AdjustBalance applies a delta to one currency's cached balance,
// keeping the cache roughly right between refreshes.
func (s *State) AdjustBalance(currency string, delta decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.balances[currency].Add(delta)
	s.balances[currency] = next
	BalanceGauge.WithLabelValues(s.name, currency).Set(next.InexactFloat64())
}

// LastRefresh returns when balances were last refreshed.
func (s *State) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// FeeRate returns the trading fee fraction for a pair, preferring the
// init-time schedule and falling back to a live query through the fee
// cache.
func (s *State) FeeRate(ctx context.Context, pair types.Pair) (decimal.Decimal, error) {
	s.mu.RLock()
	rate, ok := s.feeRates[pair.String()]
	s.mu.RUnlock()
	if ok {
		return rate, nil
	}

	key := s.name + "/fee/" + pair.String()
	if s.fees != nil {
		if cached, found := s.fees.Get(key); found {
			return cached, nil
		}
	}

	rate, err := s.client.FeeRate(ctx, pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fee rate %s %s: %w", s.name, pair, err)
	}
	if s.fees != nil {
		s.fees.Set(key, rate)
	}
	return rate, nil
}

// WithdrawFee returns the flat withdrawal fee for a currency. Live
// quotes go through the fee cache since network fees drift; the
// init-time estimate is the fallback when the venue cannot be asked.
func (s *State) WithdrawFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	key := s.name + "/txfee/" + currency
	if s.fees != nil {
		if cached, found := s.fees.Get(key); found {
			return cached, nil
		}
	}

	fee, err := s.client.WithdrawFee(ctx, currency)
	if err != nil {
		s.mu.RLock()
		fallback, ok := s.withdrawFees[currency]
		s.mu.RUnlock()
		if ok {
			return fallback, nil
		}
		return decimal.Zero, fmt.Errorf("withdraw fee %s %s: %w", s.name, currency, err)
	}

	if s.fees != nil {
		s.fees.Set(key, fee)
	}
	return fee, nil
}
