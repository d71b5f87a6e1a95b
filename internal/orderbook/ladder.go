package orderbook

import (
	"sync"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const treeDegree = 8

// Ladder holds both sides of one (venue, pair) order book. Bids iterate
// descending by price, asks ascending, so the best level is always first.
// At most one level exists per price per side.
type Ladder struct {
	mu          sync.RWMutex
	bids        *btree.BTreeG[types.PriceLevel]
	asks        *btree.BTreeG[types.PriceLevel]
	lastUpdate  time.Time
	initialized bool

	// Sequencing state. seqKnown stays false for venues that never
	// number their feed.
	nextSeq  int64
	seqKnown bool
}

func newLadder() *Ladder {
	return &Ladder{
		bids: btree.NewG(treeDegree, func(a, b types.PriceLevel) bool {
			return a.Price.GreaterThan(b.Price)
		}),
		asks: btree.NewG(treeDegree, func(a, b types.PriceLevel) bool {
			return a.Price.LessThan(b.Price)
		}),
	}
}

// replace swaps in a full snapshot, dropping all existing levels.
func (l *Ladder) replace(bids, asks []types.PriceLevel, now time.Time) {
	l.bids.Clear(false)
	l.asks.Clear(false)

	for _, lvl := range bids {
		if lvl.Quantity.IsPositive() {
			l.bids.ReplaceOrInsert(lvl)
		}
	}
	for _, lvl := range asks {
		if lvl.Quantity.IsPositive() {
			l.asks.ReplaceOrInsert(lvl)
		}
	}

	l.initialized = true
	l.lastUpdate = now
}

// upsert applies a single level change. Quantity zero deletes the level.
func (l *Ladder) upsert(side types.BookSide, price, quantity decimal.Decimal, now time.Time) {
	tree := l.bids
	if side == types.Ask {
		tree = l.asks
	}

	if quantity.IsPositive() {
		tree.ReplaceOrInsert(types.PriceLevel{Price: price, Quantity: quantity})
	} else {
		tree.Delete(types.PriceLevel{Price: price})
	}

	l.lastUpdate = now
}

func (l *Ladder) best(side types.BookSide) (types.PriceLevel, bool) {
	tree := l.bids
	if side == types.Ask {
		tree = l.asks
	}
	return tree.Min()
}

// walk consumes levels from the best price outward until the cumulative
// quantity reaches maxVolume. The final level is returned whole even when
// only part of it is needed; callers truncate. The iteration stops as
// soon as the threshold is covered, so deep books are never materialized
// for shallow walks.
func (l *Ladder) walk(side types.BookSide, maxVolume decimal.Decimal) []types.PriceLevel {
	tree := l.bids
	if side == types.Ask {
		tree = l.asks
	}

	var levels []types.PriceLevel
	cumulative := decimal.Zero

	tree.Ascend(func(lvl types.PriceLevel) bool {
		levels = append(levels, lvl)
		cumulative = cumulative.Add(lvl.Quantity)
		return cumulative.LessThan(maxVolume)
	})

	return levels
}

func (l *Ladder) depth(side types.BookSide) int {
	tree := l.bids
	if side == types.Ask {
		tree = l.asks
	}
	return tree.Len()
}
