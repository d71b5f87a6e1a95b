package sizing

import (
	"context"
	"testing"

	"github.com/crossarb/crossarb/internal/testutil"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var btcUSD = types.NewPair("BTC", "USD")

func newTestVenue(t *testing.T, name string, bids, asks []types.PriceLevel) *venue.State {
	t.Helper()

	state, err := venue.NewState(&venue.Config{
		Client: &testutil.MockVenueClient{VenueName: name},
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, testutil.SeedBook(state.Books(), btcUSD, bids, asks))
	return state
}

func newTestSizer(buffer string) *Sizer {
	return New(Config{
		BufferFraction: testutil.D(buffer),
		Logger:         zap.NewNop(),
	})
}

func TestQuotePicksBestNetPercentPrefix(t *testing.T) {
	buy := newTestVenue(t, "kraken", nil,
		[]types.PriceLevel{testutil.Level("100", "2"), testutil.Level("101", "3")})
	sell := newTestVenue(t, "bitstamp",
		[]types.PriceLevel{testutil.Level("103", "1"), testutil.Level("102", "4")}, nil)

	q, err := newTestSizer("0").Quote(context.Background(), buy, sell, btcUSD, testutil.D("10"))
	require.NoError(t, err)
	require.NotNil(t, q)

	// Prefix candidates are sizes 1 (3.00% margin), 2 (2.50%) and
	// 5 (1.59%): the margin-maximizing size is 1.
	assert.True(t, q.Volume.Equal(testutil.D("1")), "volume = %s", q.Volume)
	assert.True(t, q.BuyPrice.Equal(testutil.D("100")))
	assert.True(t, q.SellPrice.Equal(testutil.D("103")))
	assert.True(t, q.NetProfit.Equal(testutil.D("3")))
	assert.True(t, q.NetProfitPct.Equal(testutil.D("0.03")))
	assert.Equal(t, "kraken", q.BuyVenue)
	assert.Equal(t, "bitstamp", q.SellVenue)
}

// bruteForceBest recomputes every candidate size from scratch: for each
// prefix boundary of the co-walk it walks both books fresh and prices
// the whole order, then takes the best margin. The one-pass sizer must
// tie with this reference.
func bruteForceBest(asks, bids []types.PriceLevel, maxVolume decimal.Decimal) (bestSize, bestPct decimal.Decimal, found bool) {
	// Candidate sizes: every cumulative boundary of either book plus
	// the volume cap.
	var candidates []decimal.Decimal
	cum := decimal.Zero
	for _, lvl := range asks {
		cum = cum.Add(lvl.Quantity)
		candidates = append(candidates, cum)
	}
	cum = decimal.Zero
	for _, lvl := range bids {
		cum = cum.Add(lvl.Quantity)
		candidates = append(candidates, cum)
	}
	candidates = append(candidates, maxVolume)

	costFor := func(levels []types.PriceLevel, size decimal.Decimal) (decimal.Decimal, bool) {
		cost := decimal.Zero
		remaining := size
		for _, lvl := range levels {
			take := decimal.Min(lvl.Quantity, remaining)
			cost = cost.Add(lvl.Price.Mul(take))
			remaining = remaining.Sub(take)
			if remaining.IsZero() {
				return cost, true
			}
		}
		return cost, false
	}

	for _, size := range candidates {
		if !size.IsPositive() || size.GreaterThan(maxVolume) {
			continue
		}
		askCost, okA := costFor(asks, size)
		bidCost, okB := costFor(bids, size)
		if !okA || !okB {
			continue
		}
		net := bidCost.Sub(askCost)
		if !net.IsPositive() {
			continue
		}
		pct := net.Div(askCost)
		if !found || pct.GreaterThan(bestPct) {
			bestSize, bestPct, found = size, pct, true
		}
	}
	return bestSize, bestPct, found
}

func TestQuoteTiesWithBruteForceReference(t *testing.T) {
	tests := []struct {
		name      string
		asks      []types.PriceLevel
		bids      []types.PriceLevel
		maxVolume string
	}{
		{
			name: "spec-example",
			asks: []types.PriceLevel{testutil.Level("100", "2"), testutil.Level("101", "3")},
			bids: []types.PriceLevel{testutil.Level("103", "1"), testutil.Level("102", "4")},

			maxVolume: "10",
		},
		{
			name: "deep-books",
			asks: []types.PriceLevel{
				testutil.Level("100", "0.5"), testutil.Level("100.5", "1.5"),
				testutil.Level("101", "2"), testutil.Level("104", "10"),
			},
			bids: []types.PriceLevel{
				testutil.Level("103", "0.7"), testutil.Level("102.5", "0.9"),
				testutil.Level("101.5", "3"), testutil.Level("99", "10"),
			},
			maxVolume: "6",
		},
		{
			name:      "volume-capped",
			asks:      []types.PriceLevel{testutil.Level("10", "100")},
			bids:      []types.PriceLevel{testutil.Level("11", "100")},
			maxVolume: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buy := newTestVenue(t, "kraken", nil, tt.asks)
			sell := newTestVenue(t, "bitstamp", tt.bids, nil)

			q, err := newTestSizer("0").Quote(context.Background(), buy, sell, btcUSD, testutil.D(tt.maxVolume))
			require.NoError(t, err)

			refSize, refPct, refFound := bruteForceBest(tt.asks, tt.bids, testutil.D(tt.maxVolume))
			require.True(t, refFound)
			require.NotNil(t, q)

			assert.True(t, q.Volume.Equal(refSize),
				"one-pass size %s != reference %s", q.Volume, refSize)
			assert.True(t, q.NetProfitPct.Sub(refPct).Abs().LessThan(testutil.D("0.0000001")),
				"one-pass pct %s != reference %s", q.NetProfitPct, refPct)
		})
	}
}

func TestQuoteNoOpportunityWhenNotCrossed(t *testing.T) {
	buy := newTestVenue(t, "kraken", nil, []types.PriceLevel{testutil.Level("100", "5")})
	sell := newTestVenue(t, "bitstamp", []types.PriceLevel{testutil.Level("100", "5")}, nil)

	q, err := newTestSizer("0").Quote(context.Background(), buy, sell, btcUSD, testutil.D("10"))
	require.NoError(t, err)
	assert.Nil(t, q, "best ask >= best bid must yield no candidate")
}

func TestQuoteUninitializedBookFails(t *testing.T) {
	buy := newTestVenue(t, "kraken", nil, []types.PriceLevel{testutil.Level("100", "5")})

	sell, err := venue.NewState(&venue.Config{
		Client: &testutil.MockVenueClient{VenueName: "bitstamp"},
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	_, err = newTestSizer("0").Quote(context.Background(), buy, sell, btcUSD, testutil.D("10"))
	var notInit *types.NotInitializedError
	require.ErrorAs(t, err, &notInit)
}

func TestQuoteFeesCanEraseProfit(t *testing.T) {
	buyClient := &testutil.MockVenueClient{
		VenueName: "kraken",
		FeeRateFunc: func(ctx context.Context, pair types.Pair) (decimal.Decimal, error) {
			return testutil.D("0.01"), nil
		},
		WithdrawFeeFunc: func(ctx context.Context, currency string) (decimal.Decimal, error) {
			return testutil.D("0.05"), nil
		},
	}
	buy, err := venue.NewState(&venue.Config{Client: buyClient, Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, testutil.SeedBook(buy.Books(), btcUSD,
		nil, []types.PriceLevel{testutil.Level("100", "5")}))

	sellClient := &testutil.MockVenueClient{
		VenueName: "bitstamp",
		FeeRateFunc: func(ctx context.Context, pair types.Pair) (decimal.Decimal, error) {
			return testutil.D("0.01"), nil
		},
	}
	sell, err := venue.NewState(&venue.Config{Client: sellClient, Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, testutil.SeedBook(sell.Books(), btcUSD,
		[]types.PriceLevel{testutil.Level("101", "5")}, nil))

	// Gross margin is 1%, trading fees alone cost ~2%, plus a 0.05 BTC
	// withdrawal: every candidate is under water.
	q, err := newTestSizer("0").Quote(context.Background(), buy, sell, btcUSD, testutil.D("5"))
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestQuoteBufferShaveConsumesTopOfBook(t *testing.T) {
	// With a 10% buffer on maxVolume 10, one unit is shaved off the top
	// of both books before sizing: the thin 103-bid disappears and the
	// whole order prices against the 102 level.
	buy := newTestVenue(t, "kraken", nil,
		[]types.PriceLevel{testutil.Level("100", "20")})
	sell := newTestVenue(t, "bitstamp",
		[]types.PriceLevel{testutil.Level("103", "1"), testutil.Level("102", "20")}, nil)

	q, err := newTestSizer("0.1").Quote(context.Background(), buy, sell, btcUSD, testutil.D("10"))
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.True(t, q.SellPrice.Equal(testutil.D("102")), "sell price = %s", q.SellPrice)
	assert.True(t, q.SellLimitPrice.Equal(testutil.D("102")))
}
