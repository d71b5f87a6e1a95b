package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crossarb/crossarb/internal/app"
	"github.com/crossarb/crossarb/internal/coordinator"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show balances across all venues",
	Long: `Fetches and displays trading balances from every selected venue,
plus the cross-venue total per currency.`,
	RunE: runBalances,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balancesCmd)
}

// buildCoordinator wires the registered venue adapters into a
// coordinator for one-shot operator commands.
func buildCoordinator(ctx context.Context, logger *zap.Logger) (*config.Config, *coordinator.Coordinator, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	clients, err := app.Clients(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	venues := make([]*venue.State, 0, len(clients))
	for _, client := range clients {
		state, err := venue.NewState(&venue.Config{Client: client, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("venue %s: %w", client.Name(), err)
		}
		venues = append(venues, state)
	}

	coord, err := coordinator.New(coordinator.Config{
		Venues:     venues,
		Currencies: cfg.Currencies(),
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create coordinator: %w", err)
	}

	err = coord.Init(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init venues: %w", err)
	}

	return cfg, coord, nil
}

func runBalances(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, coord, err := buildCoordinator(ctx, zap.NewNop())
	if err != nil {
		return err
	}

	err = coord.RefreshBalances(ctx)
	if err != nil {
		return fmt.Errorf("refresh balances: %w", err)
	}

	fmt.Printf("=== Venue Balances ===\n\n")

	for _, v := range coord.Venues() {
		fmt.Printf("%s", v.Name())
		if v.Breaker().Tripped() {
			fmt.Printf(" (breaker tripped)")
		}
		fmt.Printf("\n")

		balances := v.Balances()
		currencies := make([]string, 0, len(balances))
		for currency := range balances {
			currencies = append(currencies, currency)
		}
		sort.Strings(currencies)

		for _, currency := range currencies {
			fmt.Printf("  %-6s %s\n", currency, balances[currency])
		}
		fmt.Printf("\n")
	}

	totals := coord.Totals()
	currencies := make([]string, 0, len(totals))
	for currency := range totals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	fmt.Printf("Totals:\n")
	for _, currency := range currencies {
		fmt.Printf("  %-6s %s\n", currency, totals[currency])
	}

	return nil
}
