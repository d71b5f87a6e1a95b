// Package cmd holds the crossarb command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "crossarb",
	Short: "Cross-exchange arbitrage trader",
	Long: `Cross-exchange arbitrage trader that maintains live order books for
multiple venues, sizes the most profitable buy-here-sell-there trade by
walking both books, and executes the two legs as a pair.

Venue adapters register themselves at link time; PAIRS and VENUES select
the trading universe.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
