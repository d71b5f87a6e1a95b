package storage

import (
	"context"
	"fmt"

	"github.com/crossarb/crossarb/internal/execution"
	"github.com/crossarb/crossarb/internal/sizing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var hundred = decimal.NewFromInt(100)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreQuote pretty-prints a sized opportunity to console.
func (c *ConsoleStorage) StoreQuote(ctx context.Context, q *sizing.Quote) error {
	fmt.Println("\n" + consoleRule)
	fmt.Printf("🎯 ARBITRAGE OPPORTUNITY\n")
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", q.ID[:8])
	fmt.Printf("Pair:     %s\n", q.Pair)
	fmt.Printf("Route:    buy %s → sell %s\n", q.BuyVenue, q.SellVenue)
	fmt.Printf("Time:     %s\n", q.QuotedAt.Format("2006-01-02 15:04:05"))
	fmt.Println(consoleRule)
	fmt.Printf("📊 PRICING\n")
	fmt.Printf("  Buy:       %s avg (limit %s)\n", q.BuyPrice, q.BuyLimitPrice)
	fmt.Printf("  Sell:      %s avg (limit %s)\n", q.SellPrice, q.SellLimitPrice)
	fmt.Printf("  Volume:    %s %s\n", q.Volume, q.Pair.Base)
	fmt.Println(consoleRule)
	fmt.Printf("💰 PROFIT ANALYSIS\n")
	fmt.Printf("  Gross Profit:    %s %s\n", q.GrossProfit, q.Pair.Quote)
	fmt.Printf("  Transfer Fee:    %s %s\n", q.TransferFee, q.Pair.Quote)
	fmt.Printf("  Net Profit:      %s %s (%s%%)\n",
		q.NetProfit, q.Pair.Quote, q.NetProfitPct.Mul(hundred))
	fmt.Println(consoleRule)

	return nil
}

// StoreExecution pretty-prints a paired-order outcome to console.
func (c *ConsoleStorage) StoreExecution(ctx context.Context, res *execution.Result) error {
	fmt.Println("\n" + consoleRule)
	switch res.Outcome {
	case execution.BothFilled, execution.PartialFilled:
		fmt.Printf("✅ EXECUTED %s: +%s %s\n",
			res.Quote.Pair, res.Quote.NetProfit, res.Quote.Pair.Quote)
	case execution.Simulated:
		fmt.Printf("🧪 DRY RUN %s: would earn %s %s\n",
			res.Quote.Pair, res.Quote.NetProfit, res.Quote.Pair.Quote)
	default:
		fmt.Printf("❌ FAILED %s: %s\n", res.Quote.Pair, res.Outcome)
	}
	fmt.Printf("Quote:    %s\n", res.Quote.ID[:8])
	fmt.Printf("Route:    buy %s → sell %s\n", res.Quote.BuyVenue, res.Quote.SellVenue)
	fmt.Println(consoleRule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
