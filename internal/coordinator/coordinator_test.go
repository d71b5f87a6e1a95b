package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crossarb/crossarb/internal/testutil"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var btcUSD = types.NewPair("BTC", "USD")

func testCurrencies() types.CurrencyTable {
	return types.CurrencyTable{
		"USD": {MinTransferSize: testutil.D("10"), WithdrawFeeEstimate: testutil.D("1")},
		"BTC": {
			MinOrderSize:        testutil.D("0.01"),
			MinTransferSize:     testutil.D("0.1"),
			WithdrawFeeEstimate: testutil.D("0.0005"),
		},
	}
}

func newTestCoordinator(t *testing.T, clients ...*testutil.MockVenueClient) *Coordinator {
	t.Helper()

	venues := make([]*venue.State, 0, len(clients))
	for _, client := range clients {
		state, err := venue.NewState(&venue.Config{Client: client, Logger: zap.NewNop()})
		require.NoError(t, err)
		venues = append(venues, state)
	}

	c, err := New(Config{
		Venues:     venues,
		Currencies: testCurrencies(),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func pairSupport(pairs ...types.Pair) func(ctx context.Context) (*types.VenueInfo, error) {
	return func(ctx context.Context) (*types.VenueInfo, error) {
		return &types.VenueInfo{SupportedPairs: pairs}, nil
	}
}

func TestRefreshBalancesFanOut(t *testing.T) {
	kraken := &testutil.MockVenueClient{
		VenueName: "kraken",
		BalancesFunc: func(ctx context.Context) (map[string]decimal.Decimal, error) {
			return balancesOf(map[string]string{"BTC": "1.5", "USD": "1000"}), nil
		},
	}
	bitstamp := &testutil.MockVenueClient{
		VenueName: "bitstamp",
		BalancesFunc: func(ctx context.Context) (map[string]decimal.Decimal, error) {
			return balancesOf(map[string]string{"USD": "2000"}), nil
		},
	}
	c := newTestCoordinator(t, kraken, bitstamp)

	require.NoError(t, c.RefreshBalances(context.Background()))

	assert.True(t, c.Venue("kraken").Balance("BTC").Equal(testutil.D("1.5")))
	assert.True(t, c.Venue("bitstamp").Balance("USD").Equal(testutil.D("2000")))
	assert.False(t, c.Venue("kraken").LastRefresh().IsZero())

	totals := c.Totals()
	assert.True(t, totals["USD"].Equal(testutil.D("3000")))
	assert.True(t, totals["BTC"].Equal(testutil.D("1.5")))
}

func TestRefreshBalancesTripsBreakerThenRecovers(t *testing.T) {
	var healthy atomic.Bool
	kraken := &testutil.MockVenueClient{
		VenueName: "kraken",
		BalancesFunc: func(ctx context.Context) (map[string]decimal.Decimal, error) {
			if !healthy.Load() {
				return nil, &types.ServerError{Venue: "kraken", Op: "balances", Message: "503"}
			}
			return balancesOf(map[string]string{"USD": "500"}), nil
		},
	}
	bitstamp := &testutil.MockVenueClient{VenueName: "bitstamp"}
	c := newTestCoordinator(t, kraken, bitstamp)

	// The failure is contained: no error, breaker tripped.
	require.NoError(t, c.RefreshBalances(context.Background()))
	assert.True(t, c.Venue("kraken").Breaker().Tripped())
	assert.False(t, c.Venue("bitstamp").Breaker().Tripped())

	// While tripped, the venue is skipped entirely.
	require.NoError(t, c.RefreshBalances(context.Background()))
	assert.True(t, c.Venue("kraken").Balance("USD").IsZero())

	// A successful probe replays the refresh and clears the breaker.
	healthy.Store(true)
	require.NoError(t, c.ProbeBreakers(context.Background()))
	assert.False(t, c.Venue("kraken").Breaker().Tripped())
	assert.True(t, c.Venue("kraken").Balance("USD").Equal(testutil.D("500")))
}

func TestRefreshBalancesSurfacesClientError(t *testing.T) {
	kraken := &testutil.MockVenueClient{
		VenueName: "kraken",
		BalancesFunc: func(ctx context.Context) (map[string]decimal.Decimal, error) {
			return nil, &types.ClientError{Venue: "kraken", Op: "balances", Message: "bad api key"}
		},
	}
	c := newTestCoordinator(t, kraken)

	err := c.RefreshBalances(context.Background())
	var clientErr *types.ClientError
	require.ErrorAs(t, err, &clientErr)
}

func TestProbePropagatesNonRecoverableError(t *testing.T) {
	kraken := &testutil.MockVenueClient{VenueName: "kraken"}
	c := newTestCoordinator(t, kraken)

	probeErr := errors.New("signature rejected")
	c.Venue("kraken").Breaker().Trip(func(ctx context.Context) error {
		return probeErr
	}, types.Retryable)

	err := c.ProbeBreakers(context.Background())
	require.ErrorIs(t, err, probeErr)
	assert.True(t, c.Venue("kraken").Breaker().Tripped())
}

func TestInitTripsBreakerOnTransientFailure(t *testing.T) {
	kraken := &testutil.MockVenueClient{
		VenueName: "kraken",
		InitFunc: func(ctx context.Context) (*types.VenueInfo, error) {
			return nil, &types.TimeoutError{Venue: "kraken", Op: "init"}
		},
	}
	bitstamp := &testutil.MockVenueClient{VenueName: "bitstamp", InitFunc: pairSupport(btcUSD)}

	// Helper calls Init; the transient failure must not abort startup.
	c := newTestCoordinator(t, kraken, bitstamp)

	assert.True(t, c.Venue("kraken").Breaker().Tripped())
	assert.True(t, c.Venue("bitstamp").SupportsPair(btcUSD))
}

func eligibilityFixture(t *testing.T) *Coordinator {
	t.Helper()

	kraken := &testutil.MockVenueClient{VenueName: "kraken", InitFunc: pairSupport(btcUSD)}
	bitstamp := &testutil.MockVenueClient{VenueName: "bitstamp", InitFunc: pairSupport(btcUSD)}
	c := newTestCoordinator(t, kraken, bitstamp)

	for _, v := range c.Venues() {
		require.NoError(t, testutil.SeedBook(v.Books(), btcUSD,
			[]types.PriceLevel{testutil.Level("99", "5")},
			[]types.PriceLevel{testutil.Level("100", "5")}))
		v.SetBalances(balancesOf(map[string]string{"BTC": "1", "USD": "1000"}))
	}
	return c
}

func venueNames(venues []*venue.State) []string {
	names := make([]string, 0, len(venues))
	for _, v := range venues {
		names = append(names, v.Name())
	}
	return names
}

func TestEligibilityAllGatesPass(t *testing.T) {
	c := eligibilityFixture(t)

	assert.Equal(t, []string{"kraken", "bitstamp"}, venueNames(c.EligibleBuyVenues(btcUSD)))
	assert.Equal(t, []string{"kraken", "bitstamp"}, venueNames(c.EligibleSellVenues(btcUSD)))
}

func TestEligibilityUnsupportedPair(t *testing.T) {
	c := eligibilityFixture(t)

	ethUSD := types.NewPair("ETH", "USD")
	assert.Empty(t, c.EligibleBuyVenues(ethUSD))
}

func TestEligibilityTrippedBreaker(t *testing.T) {
	c := eligibilityFixture(t)

	c.Venue("kraken").Breaker().Trip(func(ctx context.Context) error { return nil }, types.Retryable)
	assert.Equal(t, []string{"bitstamp"}, venueNames(c.EligibleBuyVenues(btcUSD)))
}

func TestEligibilityUnderfundedQuoteSide(t *testing.T) {
	c := eligibilityFixture(t)

	// Min notional is 0.01 BTC at the 100 ask = 1 USD.
	c.Venue("kraken").SetBalances(balancesOf(map[string]string{"BTC": "1", "USD": "0.5"}))

	assert.Equal(t, []string{"bitstamp"}, venueNames(c.EligibleBuyVenues(btcUSD)))
	assert.Equal(t, []string{"kraken", "bitstamp"}, venueNames(c.EligibleSellVenues(btcUSD)))
}

func TestEligibilityUnderfundedBaseSide(t *testing.T) {
	c := eligibilityFixture(t)

	c.Venue("bitstamp").SetBalances(balancesOf(map[string]string{"BTC": "0.001", "USD": "1000"}))

	assert.Equal(t, []string{"kraken"}, venueNames(c.EligibleSellVenues(btcUSD)))
	assert.Equal(t, []string{"kraken", "bitstamp"}, venueNames(c.EligibleBuyVenues(btcUSD)))
}

func TestEligibilityStaleBook(t *testing.T) {
	kraken := &testutil.MockVenueClient{VenueName: "kraken", InitFunc: pairSupport(btcUSD)}
	state, err := venue.NewState(&venue.Config{Client: kraken, Logger: zap.NewNop()})
	require.NoError(t, err)

	c, err := New(Config{
		Venues:             []*venue.State{state},
		Currencies:         testCurrencies(),
		Logger:             zap.NewNop(),
		FreshnessThreshold: time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))

	require.NoError(t, testutil.SeedBook(state.Books(), btcUSD,
		[]types.PriceLevel{testutil.Level("99", "5")},
		[]types.PriceLevel{testutil.Level("100", "5")}))
	state.SetBalances(balancesOf(map[string]string{"BTC": "1", "USD": "1000"}))

	time.Sleep(5 * time.Millisecond)
	assert.Empty(t, c.EligibleBuyVenues(btcUSD))
	assert.Empty(t, c.EligibleSellVenues(btcUSD))
}

func TestEligibilityUninitializedBook(t *testing.T) {
	kraken := &testutil.MockVenueClient{VenueName: "kraken", InitFunc: pairSupport(btcUSD)}
	c := newTestCoordinator(t, kraken)
	c.Venue("kraken").SetBalances(balancesOf(map[string]string{"BTC": "1", "USD": "1000"}))

	assert.Empty(t, c.EligibleBuyVenues(btcUSD))
}

func TestOrderHistoryCapped(t *testing.T) {
	kraken := &testutil.MockVenueClient{VenueName: "kraken"}

	state, err := venue.NewState(&venue.Config{Client: kraken, Logger: zap.NewNop()})
	require.NoError(t, err)
	c, err := New(Config{
		Venues:       []*venue.State{state},
		Currencies:   testCurrencies(),
		Logger:       zap.NewNop(),
		HistoryLimit: 3,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		c.RecordOrder(types.OrderRecord{
			Side: types.Buy, Pair: btcUSD, VenueName: "kraken", PlacedAt: time.Now(),
		})
	}
	assert.Len(t, c.OrderHistory(), 3)
}

type bankCapableClient struct {
	*testutil.MockVenueClient

	bank  map[string]decimal.Decimal
	moved []string
}

func (b *bankCapableClient) BankBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return b.bank, nil
}

func (b *bankCapableClient) BankToTrading(ctx context.Context, currency string, amount decimal.Decimal) error {
	b.moved = append(b.moved, currency)
	return nil
}

func TestSweepBankAccounts(t *testing.T) {
	client := &bankCapableClient{
		MockVenueClient: &testutil.MockVenueClient{VenueName: "itbit"},
		bank: balancesOf(map[string]string{
			"USD": "100",
			"BTC": "0.05", // below the 0.1 minimum transfer, left alone
		}),
	}

	state, err := venue.NewState(&venue.Config{Client: client, Logger: zap.NewNop()})
	require.NoError(t, err)
	c, err := New(Config{
		Venues:     []*venue.State{state},
		Currencies: testCurrencies(),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))

	c.SweepBankAccounts(context.Background())

	assert.Equal(t, []string{"USD"}, client.moved)
	assert.True(t, state.Balance("USD").Equal(testutil.D("100")))
	assert.True(t, state.Balance("BTC").IsZero())
}
