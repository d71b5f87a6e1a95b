package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/crossarb/crossarb/internal/app"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Show the cross-venue arbitrage table for a pair",
	Long: `Polls every selected venue's top of book for a pair and prints the
gross margin of each buy-here-sell-there route. Positive margins mean
the market is crossed before fees.`,
	RunE: runBook,
}

//nolint:gochecknoglobals // Cobra boilerplate
var bookPair string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.Flags().StringVarP(&bookPair, "pair", "p", "BTC/USD", "Pair to inspect (BASE/QUOTE)")
}

func runBook(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	clients, err := app.Clients(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pair, err := parseBookPair(bookPair)
	if err != nil {
		return err
	}

	quotes := make(map[string]types.BidAsk, len(clients))
	fmt.Printf("=== %s top of book ===\n\n", pair)
	for _, client := range clients {
		quote, err := client.BidAsk(ctx, pair)
		if err != nil {
			fmt.Printf("%-12s unavailable: %v\n", client.Name(), err)
			continue
		}
		quotes[client.Name()] = quote
		fmt.Printf("%-12s bid %-14s ask %s\n", client.Name(), quote.Bid, quote.Ask)
	}

	fmt.Printf("\n=== routes (gross margin) ===\n\n")
	for _, buy := range clients {
		buyQuote, ok := quotes[buy.Name()]
		if !ok || buyQuote.Ask.IsZero() {
			continue
		}
		for _, sell := range clients {
			if sell.Name() == buy.Name() {
				continue
			}
			sellQuote, ok := quotes[sell.Name()]
			if !ok {
				continue
			}

			margin := sellQuote.Bid.Sub(buyQuote.Ask).Div(buyQuote.Ask)
			marker := " "
			if margin.GreaterThan(decimal.Zero) {
				marker = "*"
			}
			fmt.Printf("%s buy %-12s sell %-12s %s%%\n",
				marker, buy.Name(), sell.Name(),
				margin.Mul(decimal.NewFromInt(100)).Round(4))
		}
	}

	return nil
}

func parseBookPair(raw string) (types.Pair, error) {
	cfg := &config.Config{Pairs: []string{raw}}
	pairs, err := cfg.TradedPairs()
	if err != nil {
		return types.Pair{}, err
	}
	return pairs[0], nil
}
