package types

import "github.com/shopspring/decimal"

// CurrencyInfo is static per-currency metadata the coordinator needs to
// size orders and transfers.
type CurrencyInfo struct {
	// MinOrderSize is the smallest order volume worth placing, in units
	// of the currency.
	MinOrderSize decimal.Decimal
	// MinTransferSize is the smallest cross-venue transfer worth making.
	MinTransferSize decimal.Decimal
	// WithdrawFeeEstimate is the expected flat cost of one withdrawal,
	// used to gate rebalancing before a venue quotes the real fee.
	WithdrawFeeEstimate decimal.Decimal
}

// CurrencyTable maps currency codes to their metadata. It is explicit
// configuration handed to the coordinator at construction.
type CurrencyTable map[string]CurrencyInfo

// Info returns the metadata for a currency. An unknown currency gets
// the zero value, meaning no minimums apply.
func (t CurrencyTable) Info(currency string) CurrencyInfo {
	return t[currency]
}
