package coordinator

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// transfer is one planned creditor-to-debtor move of a single currency.
type transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// planTransfers computes the transfers that bring every venue's balance
// of one currency toward the even split, given each venue's current
// balance and a sort weight. The weight orders creditors: a venue that
// is likely to need the currency again soon carries a lower weight, so
// its surplus is tapped last. Pure function, no I/O.
//
// Venues within minTransfer of the target are left alone: a move
// smaller than the minimum transfer size costs more than it fixes.
func planTransfers(balances map[string]decimal.Decimal, weights map[string]decimal.Decimal, minTransfer decimal.Decimal) []transfer {
	if len(balances) < 2 {
		return nil
	}

	total := decimal.Zero
	for _, amount := range balances {
		total = total.Add(amount)
	}
	target := total.Div(decimal.NewFromInt(int64(len(balances))))

	type party struct {
		name   string
		amount decimal.Decimal
		weight decimal.Decimal
	}
	var debtors, creditors []party
	for name, amount := range balances {
		diff := amount.Sub(target)
		switch {
		case diff.GreaterThanOrEqual(minTransfer):
			creditors = append(creditors, party{name, diff, weights[name]})
		case diff.Neg().GreaterThanOrEqual(minTransfer):
			debtors = append(debtors, party{name, diff.Neg(), decimal.Zero})
		}
	}

	// Largest first; creditors additionally by weight so reluctant
	// creditors yield last. Names break ties deterministically.
	sort.Slice(debtors, func(i, j int) bool {
		if !debtors[i].amount.Equal(debtors[j].amount) {
			return debtors[i].amount.GreaterThan(debtors[j].amount)
		}
		return debtors[i].name < debtors[j].name
	})
	sort.Slice(creditors, func(i, j int) bool {
		wi := creditors[i].amount.Mul(decimal.NewFromInt(1).Add(creditors[i].weight))
		wj := creditors[j].amount.Mul(decimal.NewFromInt(1).Add(creditors[j].weight))
		if !wi.Equal(wj) {
			return wi.GreaterThan(wj)
		}
		return creditors[i].name < creditors[j].name
	})

	var plan []transfer
	for len(debtors) > 0 && len(creditors) > 0 {
		d, cr := &debtors[0], &creditors[0]

		// Both sides are at least minTransfer away from target, so the
		// move is always worth its fee.
		amount := decimal.Min(d.amount, cr.amount)
		plan = append(plan, transfer{From: cr.name, To: d.name, Amount: amount})
		d.amount = d.amount.Sub(amount)
		cr.amount = cr.amount.Sub(amount)

		if d.amount.LessThan(minTransfer) {
			debtors = debtors[1:]
		}
		if cr.amount.LessThan(minTransfer) {
			creditors = creditors[1:]
		}
	}
	return plan
}

// Rebalance evens out one currency across all healthy venues. Each
// planned transfer is attempted at most once per cycle; a failed
// transfer is logged and skipped so the next cycle re-evaluates from
// actual balances. The whole currency is skipped when the banked
// transfer credits cannot cover the estimated withdrawal fees, since
// moving funds at a net loss is never acceptable.
func (c *Coordinator) Rebalance(ctx context.Context, currency string) {
	info := c.config.Currencies.Info(currency)

	balances := make(map[string]decimal.Decimal)
	weights := make(map[string]decimal.Decimal)
	for _, v := range c.ordered {
		if v.Breaker().Tripped() {
			continue
		}
		balances[v.Name()] = v.Balance(currency)

		// A venue that spent this currency on a recent order will likely
		// need it again: discount its surplus when ordering creditors.
		if c.recentConsumers(v.Name(), currency) > 0 {
			weights[v.Name()] = decimal.NewFromFloat(-0.5)
		}
	}

	plan := planTransfers(balances, weights, info.MinTransferSize)
	if len(plan) == 0 {
		return
	}

	estimatedFees := info.WithdrawFeeEstimate.Mul(decimal.NewFromInt(int64(len(plan))))
	if c.TransferCredit(currency).LessThan(estimatedFees) {
		RebalanceSkippedTotal.WithLabelValues(currency, "insufficient_credit").Inc()
		c.logger.Info("rebalance-skipped",
			zap.String("currency", currency),
			zap.String("estimated-fees", estimatedFees.String()),
			zap.String("credit", c.TransferCredit(currency).String()))
		return
	}

	for _, t := range plan {
		if err := c.executeTransfer(ctx, currency, t); err != nil {
			c.logger.Warn("rebalance-transfer-failed",
				zap.String("currency", currency),
				zap.String("from", t.From),
				zap.String("to", t.To),
				zap.String("amount", t.Amount.String()),
				zap.Error(err))
			continue
		}
		// Only a transfer that actually went out pays its fee from the
		// credit bank; a failed attempt leaves the bank untouched.
		c.spendTransferCredit(currency, info.WithdrawFeeEstimate)
		RebalanceTransfersTotal.WithLabelValues(currency).Inc()
	}
}

func (c *Coordinator) executeTransfer(ctx context.Context, currency string, t transfer) error {
	from, to := c.venues[t.From], c.venues[t.To]

	address, err := to.Client().DepositAddress(ctx, currency)
	if err != nil {
		return err
	}
	if err := from.Client().Withdraw(ctx, currency, address, t.Amount); err != nil {
		return err
	}

	from.AdjustBalance(currency, t.Amount.Neg())
	to.AdjustBalance(currency, t.Amount)

	c.logger.Info("rebalance-transfer",
		zap.String("currency", currency),
		zap.String("from", t.From),
		zap.String("to", t.To),
		zap.String("amount", t.Amount.String()))
	return nil
}
