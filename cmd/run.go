package cmd

import (
	"fmt"

	"github.com/crossarb/crossarb/internal/app"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage trader",
	Long: `Starts the cross-exchange arbitrage trader, which will:
1. Initialize every selected venue and subscribe to its order book stream
2. Refresh balances and rebalance funds on their configured cadence
3. Size the best buy-here-sell-there opportunity every cycle
4. Execute both legs as a pair once an opportunity clears the margin floor

EXECUTION_MODE=paper (the default) detects and logs without placing orders.`,
	RunE: runTrader,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runTrader(cmd *cobra.Command, args []string) error {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
