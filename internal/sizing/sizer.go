package sizing

import (
	"context"
	"fmt"

	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sizer walks two venues' books simultaneously to find the trade size
// maximizing net percent profit after trading and transfer fees. A
// smaller trade with a higher margin beats a larger one with a lower
// margin: it is likelier to fill and preserves capital for the next
// opportunity.
type Sizer struct {
	config Config
	logger *zap.Logger
}

// Config holds sizer configuration.
type Config struct {
	// BufferFraction is shaved off the top of both books before sizing,
	// so the priced levels sit slightly below the touch and fills are
	// likelier. Zero disables the shave.
	BufferFraction decimal.Decimal
	Logger         *zap.Logger
}

// New creates a sizer.
func New(cfg Config) *Sizer {
	return &Sizer{config: cfg, logger: cfg.Logger}
}

// levelIter steps through walked price levels, letting the co-walk
// partially consume the level it currently holds.
type levelIter struct {
	levels []types.PriceLevel
	idx    int
	price  decimal.Decimal
	size   decimal.Decimal
}

func newLevelIter(levels []types.PriceLevel) *levelIter {
	it := &levelIter{levels: levels, idx: -1}
	it.advance()
	return it
}

func (it *levelIter) valid() bool {
	return it.idx < len(it.levels)
}

func (it *levelIter) advance() {
	it.idx++
	if it.valid() {
		it.price = it.levels[it.idx].Price
		it.size = it.levels[it.idx].Quantity
	}
}

// Quote sizes the opportunity of buying on buy and selling on sell, up
// to maxVolume of the base currency. It returns nil when there is no
// profitable size, and an error only when the inputs are unusable (an
// uninitialized book, a failed fee lookup).
func (s *Sizer) Quote(ctx context.Context, buy, sell *venue.State, pair types.Pair, maxVolume decimal.Decimal) (*Quote, error) {
	if !maxVolume.IsPositive() {
		RejectedTotal.WithLabelValues("no_volume").Inc()
		return nil, nil
	}

	buffered := maxVolume.Mul(decimal.NewFromInt(1).Add(s.config.BufferFraction))

	askLevels, err := buy.Books().Walk(pair, types.Ask, buffered)
	if err != nil {
		return nil, fmt.Errorf("walk %s asks: %w", buy.Name(), err)
	}
	bidLevels, err := sell.Books().Walk(pair, types.Bid, buffered)
	if err != nil {
		return nil, fmt.Errorf("walk %s bids: %w", sell.Name(), err)
	}

	asks := newLevelIter(askLevels)
	bids := newLevelIter(bidLevels)
	if !asks.valid() || !bids.valid() {
		RejectedTotal.WithLabelValues("empty_book").Inc()
		return nil, nil
	}

	// No opportunity when the books do not cross at the touch.
	if bids.price.LessThanOrEqual(asks.price) {
		RejectedTotal.WithLabelValues("not_crossed").Inc()
		return nil, nil
	}

	buyFeeRate, err := buy.FeeRate(ctx, pair)
	if err != nil {
		return nil, err
	}
	sellFeeRate, err := sell.FeeRate(ctx, pair)
	if err != nil {
		return nil, err
	}
	transferFee, err := buy.WithdrawFee(ctx, pair.Base)
	if err != nil {
		return nil, err
	}

	s.shaveBuffer(asks, bids, maxVolume)
	if !asks.valid() || !bids.valid() {
		RejectedTotal.WithLabelValues("empty_book").Inc()
		return nil, nil
	}

	quote := s.coWalk(asks, bids, pair, buy.Name(), sell.Name(),
		maxVolume, buyFeeRate, sellFeeRate, transferFee)
	if quote == nil {
		RejectedTotal.WithLabelValues("unprofitable").Inc()
		return nil, nil
	}

	QuotesTotal.Inc()
	NetProfitPct.Observe(quote.NetProfitPct.InexactFloat64())
	return quote, nil
}

// shaveBuffer consumes BufferFraction of maxVolume off the top of both
// iterators in lockstep.
func (s *Sizer) shaveBuffer(asks, bids *levelIter, maxVolume decimal.Decimal) {
	remaining := maxVolume.Mul(s.config.BufferFraction)

	for remaining.IsPositive() && asks.valid() && bids.valid() {
		held := decimal.Min(asks.size, bids.size)
		if remaining.LessThan(held) {
			asks.size = asks.size.Sub(remaining)
			bids.size = bids.size.Sub(remaining)
			return
		}
		if asks.size.LessThan(bids.size) {
			remaining = remaining.Sub(asks.size)
			bids.size = bids.size.Sub(asks.size)
			asks.advance()
		} else {
			remaining = remaining.Sub(bids.size)
			asks.size = asks.size.Sub(bids.size)
			bids.advance()
		}
	}
}

// coWalk matches ask liquidity against bid liquidity level by level,
// evaluating the cumulative order after every match and keeping the
// candidate with the best net percent profit. One pass over both books
// covers every candidate prefix size.
func (s *Sizer) coWalk(asks, bids *levelIter, pair types.Pair, buyVenue, sellVenue string,
	maxVolume, buyFeeRate, sellFeeRate, transferFee decimal.Decimal) *Quote {

	var best *Quote

	volRemaining := maxVolume
	totalSize := decimal.Zero
	askCost := decimal.Zero
	bidCost := decimal.Zero

	for volRemaining.IsPositive() && asks.valid() && bids.valid() {
		matched := decimal.Min(asks.size, bids.size, volRemaining)

		askCost = askCost.Add(asks.price.Mul(matched))
		bidCost = bidCost.Add(bids.price.Mul(matched))
		totalSize = totalSize.Add(matched)
		volRemaining = volRemaining.Sub(matched)

		askLimit := asks.price
		bidLimit := bids.price

		asks.size = asks.size.Sub(matched)
		bids.size = bids.size.Sub(matched)
		if asks.size.IsZero() {
			asks.advance()
		}
		if bids.size.IsZero() {
			bids.advance()
		}

		avgAsk := askCost.Div(totalSize)
		avgBid := bidCost.Div(totalSize)

		gross := bidCost.Sub(askCost)
		tradingFees := askCost.Mul(buyFeeRate).Add(bidCost.Mul(sellFeeRate))
		txFee := transferFee.Mul(avgAsk)
		net := gross.Sub(tradingFees).Sub(txFee)
		netPct := net.Div(askCost)

		if best == nil || netPct.GreaterThan(best.NetProfitPct) {
			candidate := newQuote(pair, buyVenue, sellVenue)
			candidate.BuyPrice = avgAsk
			candidate.BuyLimitPrice = askLimit
			candidate.SellPrice = avgBid
			candidate.SellLimitPrice = bidLimit
			candidate.Volume = totalSize
			candidate.TransferFee = txFee
			candidate.GrossProfit = gross
			candidate.NetProfit = net
			candidate.NetProfitPct = netPct
			best = candidate
		}
	}

	if best == nil || !best.NetProfit.IsPositive() {
		return nil
	}
	return best
}
