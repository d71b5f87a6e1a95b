package orderbook

import (
	"sync"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store owns one Ladder per pair for a single venue and applies the
// venue's sequenced update stream to them. One stream task writes, the
// sizing path reads concurrently; locking is per ladder so unrelated
// pairs never contend.
type Store struct {
	venue   string
	logger  *zap.Logger
	mu      sync.RWMutex
	ladders map[string]*Ladder

	now func() time.Time // swapped in freshness tests
}

// NewStore creates an empty book store for a venue.
func NewStore(venue string, logger *zap.Logger) *Store {
	return &Store{
		venue:   venue,
		logger:  logger,
		ladders: make(map[string]*Ladder),
		now:     time.Now,
	}
}

// Venue returns the owning venue's name.
func (s *Store) Venue() string {
	return s.venue
}

func (s *Store) ladder(pair types.Pair) *Ladder {
	key := pair.String()

	s.mu.RLock()
	l, ok := s.ladders[key]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.ladders[key]; ok {
		return l
	}
	l = newLadder()
	s.ladders[key] = l
	return l
}

// ApplyUpdate applies one sequenced update to the pair's ladder.
//
// Sequencing contract: the first numbered update for a pair sets the
// baseline; after that an update numbered below the expected sequence is
// a duplicate and is dropped, one above it is a gap and fails with
// *types.SequenceError. A gap means the book can no longer be trusted
// and the caller must re-snapshot; an update whose first entry is a
// snapshot re-baselines the sequence instead of being gap-checked.
func (s *Store) ApplyUpdate(update types.SequencedUpdate) error {
	l := s.ladder(update.Pair)

	l.mu.Lock()
	defer l.mu.Unlock()

	resync := len(update.Entries) > 0 && update.Entries[0].Kind == types.EntryInitialize

	if update.HasSeq && l.seqKnown && !resync {
		switch {
		case update.Seq < l.nextSeq:
			DuplicatesDroppedTotal.WithLabelValues(s.venue).Inc()
			s.logger.Debug("duplicate-update-dropped",
				zap.String("venue", s.venue),
				zap.String("pair", update.Pair.String()),
				zap.Int64("seq", update.Seq),
				zap.Int64("expected", l.nextSeq))
			return nil
		case update.Seq > l.nextSeq:
			SequenceGapsTotal.WithLabelValues(s.venue).Inc()
			return &types.SequenceError{
				Venue:    s.venue,
				Pair:     update.Pair,
				Expected: l.nextSeq,
				Received: update.Seq,
			}
		}
	}

	now := s.now()
	for _, entry := range update.Entries {
		switch entry.Kind {
		case types.EntryInitialize:
			l.replace(entry.Bids, entry.Asks, now)
		case types.EntryPriceChange:
			l.upsert(entry.Side, entry.Price, entry.Quantity, now)
		case types.EntryTrade:
			// Informational only.
			l.lastUpdate = now
		}
		UpdatesAppliedTotal.WithLabelValues(s.venue, string(entry.Kind)).Inc()
	}

	if update.HasSeq {
		l.nextSeq = update.Seq + 1
		l.seqKnown = true
	}

	BookDepth.WithLabelValues(s.venue, update.Pair.String(), "bid").Set(float64(l.depth(types.Bid)))
	BookDepth.WithLabelValues(s.venue, update.Pair.String(), "ask").Set(float64(l.depth(types.Ask)))

	return nil
}

// BestBid returns the highest bid price for the pair.
func (s *Store) BestBid(pair types.Pair) (decimal.Decimal, error) {
	return s.bestPrice(pair, types.Bid)
}

// BestAsk returns the lowest ask price for the pair.
func (s *Store) BestAsk(pair types.Pair) (decimal.Decimal, error) {
	return s.bestPrice(pair, types.Ask)
}

func (s *Store) bestPrice(pair types.Pair, side types.BookSide) (decimal.Decimal, error) {
	l := s.ladder(pair)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.initialized {
		return decimal.Zero, &types.NotInitializedError{Venue: s.venue, Pair: pair}
	}

	lvl, ok := l.best(side)
	if !ok {
		return decimal.Zero, &types.NotInitializedError{Venue: s.venue, Pair: pair}
	}
	return lvl.Price, nil
}

// Walk returns levels from the best price outward until their cumulative
// quantity covers maxVolume. The last level may exceed what the caller
// needs; it is returned whole.
func (s *Store) Walk(pair types.Pair, side types.BookSide, maxVolume decimal.Decimal) ([]types.PriceLevel, error) {
	l := s.ladder(pair)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.initialized {
		return nil, &types.NotInitializedError{Venue: s.venue, Pair: pair}
	}
	return l.walk(side, maxVolume), nil
}

// Freshness returns the time elapsed since the pair's ladder last
// changed.
func (s *Store) Freshness(pair types.Pair) (time.Duration, error) {
	l := s.ladder(pair)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.initialized {
		return 0, &types.NotInitializedError{Venue: s.venue, Pair: pair}
	}
	return s.now().Sub(l.lastUpdate), nil
}

// Initialized reports whether a snapshot has been applied for the pair.
func (s *Store) Initialized(pair types.Pair) bool {
	l := s.ladder(pair)

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initialized
}
