package types

import "fmt"

// Pair identifies a traded currency pair. Base is the asset being bought
// or sold, Quote is the currency prices are denominated in.
type Pair struct {
	Base  string
	Quote string
}

// NewPair builds a pair from base and quote currency codes.
func NewPair(base, quote string) Pair {
	return Pair{Base: base, Quote: quote}
}

func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// BookSide selects one side of an order book.
type BookSide int

const (
	Bid BookSide = iota
	Ask
)

func (s BookSide) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("BookSide(%d)", int(s))
	}
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)
