package orderbook

import (
	"testing"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var btcUSD = types.NewPair("BTC", "USD")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func level(price, qty string) types.PriceLevel {
	return types.PriceLevel{Price: dec(price), Quantity: dec(qty)}
}

func snapshot(seq int64, bids, asks []types.PriceLevel) types.SequencedUpdate {
	return types.SequencedUpdate{
		Pair:   btcUSD,
		Seq:    seq,
		HasSeq: true,
		Entries: []types.DeltaEntry{
			{Kind: types.EntryInitialize, Bids: bids, Asks: asks},
		},
	}
}

func priceChange(seq int64, side types.BookSide, price, qty string) types.SequencedUpdate {
	return types.SequencedUpdate{
		Pair:   btcUSD,
		Seq:    seq,
		HasSeq: true,
		Entries: []types.DeltaEntry{
			{Kind: types.EntryPriceChange, Side: side, Price: dec(price), Quantity: dec(qty)},
		},
	}
}

func TestApplyUpdateSequenceGap(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("99", "1")},
		[]types.PriceLevel{level("101", "1")})))
	require.NoError(t, store.ApplyUpdate(priceChange(2, types.Bid, "100", "2")))

	err := store.ApplyUpdate(priceChange(4, types.Bid, "100.5", "1"))
	require.Error(t, err)

	var seqErr *types.SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, int64(3), seqErr.Expected)
	assert.Equal(t, int64(4), seqErr.Received)
}

func TestApplyUpdateDuplicateIgnored(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("99", "1")},
		[]types.PriceLevel{level("101", "1")})))
	require.NoError(t, store.ApplyUpdate(priceChange(2, types.Bid, "100", "2")))
	// Duplicate of seq 2 must be dropped without touching the book.
	require.NoError(t, store.ApplyUpdate(priceChange(2, types.Bid, "55", "9")))
	require.NoError(t, store.ApplyUpdate(priceChange(3, types.Ask, "100.5", "1")))

	bid, err := store.BestBid(btcUSD)
	require.NoError(t, err)
	assert.True(t, bid.Equal(dec("100")), "duplicate must not rewind the book, got %s", bid)

	ask, err := store.BestAsk(btcUSD)
	require.NoError(t, err)
	assert.True(t, ask.Equal(dec("100.5")))
}

func TestApplyUpdateSnapshotRebaselinesSequence(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("99", "1")},
		[]types.PriceLevel{level("101", "1")})))

	err := store.ApplyUpdate(priceChange(5, types.Bid, "100", "1"))
	require.Error(t, err)

	// A fresh snapshot after the gap is the resync path and must be
	// accepted even though its sequence jumps ahead.
	require.NoError(t, store.ApplyUpdate(snapshot(10,
		[]types.PriceLevel{level("98", "3")},
		[]types.PriceLevel{level("102", "3")})))
	require.NoError(t, store.ApplyUpdate(priceChange(11, types.Bid, "98.5", "1")))

	bid, err := store.BestBid(btcUSD)
	require.NoError(t, err)
	assert.True(t, bid.Equal(dec("98.5")))
}

func TestBestBidAskNotInitialized(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	_, err := store.BestBid(btcUSD)
	var notInit *types.NotInitializedError
	require.ErrorAs(t, err, &notInit)

	_, err = store.BestAsk(btcUSD)
	require.ErrorAs(t, err, &notInit)

	assert.False(t, store.Initialized(btcUSD))
}

func TestBookNeverCrossedUnderValidUpdates(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	updates := []types.SequencedUpdate{
		snapshot(1,
			[]types.PriceLevel{level("99", "1"), level("98", "2")},
			[]types.PriceLevel{level("101", "1"), level("102", "2")}),
		priceChange(2, types.Bid, "99.5", "1"),
		priceChange(3, types.Ask, "100.5", "2"),
		priceChange(4, types.Bid, "99.5", "0"), // delete
		priceChange(5, types.Ask, "101", "0"),  // delete
		priceChange(6, types.Bid, "100.1", "3"),
	}

	for _, u := range updates {
		require.NoError(t, store.ApplyUpdate(u))

		bid, bidErr := store.BestBid(btcUSD)
		ask, askErr := store.BestAsk(btcUSD)
		if bidErr != nil || askErr != nil {
			continue
		}
		assert.True(t, bid.LessThan(ask), "crossed book: bid %s >= ask %s", bid, ask)
	}
}

func TestWalkStopsAtMaxVolume(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("99", "10")},
		[]types.PriceLevel{level("100", "1"), level("101", "2"), level("102", "5")})))

	levels, err := store.Walk(btcUSD, types.Ask, dec("2.5"))
	require.NoError(t, err)

	// Cumulative 1 + 2 = 3 >= 2.5 after the second level: exactly two
	// levels, never the third.
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(dec("100")))
	assert.True(t, levels[0].Quantity.Equal(dec("1")))
	assert.True(t, levels[1].Price.Equal(dec("101")))
	assert.True(t, levels[1].Quantity.Equal(dec("2")))
}

func TestWalkBidsDescending(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("98", "4"), level("103", "1"), level("102", "4")},
		[]types.PriceLevel{level("104", "1")})))

	levels, err := store.Walk(btcUSD, types.Bid, dec("5"))
	require.NoError(t, err)

	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(dec("103")))
	assert.True(t, levels[1].Price.Equal(dec("102")))
}

func TestZeroQuantityLevelRemoved(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("99", "1")},
		[]types.PriceLevel{level("101", "1"), level("102", "2")})))
	require.NoError(t, store.ApplyUpdate(priceChange(2, types.Ask, "101", "0")))

	ask, err := store.BestAsk(btcUSD)
	require.NoError(t, err)
	assert.True(t, ask.Equal(dec("102")))

	levels, err := store.Walk(btcUSD, types.Ask, dec("100"))
	require.NoError(t, err)
	for _, lvl := range levels {
		assert.True(t, lvl.Quantity.IsPositive())
	}
}

func TestFreshness(t *testing.T) {
	store := NewStore("kraken", zap.NewNop())

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store.now = func() time.Time { return current }

	require.NoError(t, store.ApplyUpdate(snapshot(1,
		[]types.PriceLevel{level("99", "1")},
		[]types.PriceLevel{level("101", "1")})))

	current = base.Add(42 * time.Second)
	age, err := store.Freshness(btcUSD)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, age)
}

func TestUnsequencedVenueNeverGaps(t *testing.T) {
	store := NewStore("bitstamp", zap.NewNop())

	u := types.SequencedUpdate{
		Pair: btcUSD,
		Entries: []types.DeltaEntry{
			{Kind: types.EntryInitialize,
				Bids: []types.PriceLevel{level("99", "1")},
				Asks: []types.PriceLevel{level("101", "1")}},
		},
	}
	require.NoError(t, store.ApplyUpdate(u))

	// Unnumbered deltas are last-write-wins in any order.
	for _, price := range []string{"100", "99.5", "100.2"} {
		require.NoError(t, store.ApplyUpdate(types.SequencedUpdate{
			Pair: btcUSD,
			Entries: []types.DeltaEntry{
				{Kind: types.EntryPriceChange, Side: types.Bid, Price: dec(price), Quantity: dec("1")},
			},
		}))
	}

	bid, err := store.BestBid(btcUSD)
	require.NoError(t, err)
	assert.True(t, bid.Equal(dec("100.2")))
}
