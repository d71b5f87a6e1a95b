// Package config loads application configuration from the environment
// and builds the process logger.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Trading universe. Pairs are BASE/QUOTE codes; Venues selects which
	// registered venue adapters to trade on (empty = all registered).
	Pairs  []string
	Venues []string

	// Engine cadence
	CycleInterval     time.Duration
	RefreshInterval   time.Duration
	RebalanceInterval time.Duration
	SweepInterval     time.Duration
	TableInterval     time.Duration

	// Opportunity sizing
	MinProfitPct   float64
	BufferFraction float64

	// Coordinator
	FreshnessThreshold time.Duration
	FeeCacheTTL        time.Duration

	// Execution
	ExecutionMode string // "paper" or "live"
	FillTimeout   time.Duration
	PollInterval  time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Universe defaults
		Pairs:  getListOrDefault("PAIRS", []string{"BTC/USD"}),
		Venues: getListOrDefault("VENUES", nil),

		// Engine defaults
		CycleInterval:     getDurationOrDefault("CYCLE_INTERVAL", 2*time.Second),
		RefreshInterval:   getDurationOrDefault("BALANCE_REFRESH_INTERVAL", 30*time.Second),
		RebalanceInterval: getDurationOrDefault("REBALANCE_INTERVAL", 10*time.Minute),
		SweepInterval:     getDurationOrDefault("BANK_SWEEP_INTERVAL", time.Hour),
		TableInterval:     getDurationOrDefault("MARKET_TABLE_INTERVAL", time.Minute),

		// Sizing defaults
		MinProfitPct:   getFloat64OrDefault("MIN_PROFIT_PCT", 0.005), // 0.5% margin floor
		BufferFraction: getFloat64OrDefault("ORDER_BOOK_BUFFER", 0.0),

		// Coordinator defaults
		FreshnessThreshold: getDurationOrDefault("BOOK_FRESHNESS_THRESHOLD", 30*time.Second),
		FeeCacheTTL:        getDurationOrDefault("FEE_CACHE_TTL", 15*time.Minute),

		// Execution defaults
		ExecutionMode: getEnvOrDefault("EXECUTION_MODE", "paper"),
		FillTimeout:   getDurationOrDefault("FILL_TIMEOUT", 30*time.Second),
		PollInterval:  getDurationOrDefault("FILL_POLL_INTERVAL", 500*time.Millisecond),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "crossarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "crossarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "crossarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if len(c.Pairs) == 0 {
		return fmt.Errorf("PAIRS cannot be empty")
	}
	for _, raw := range c.Pairs {
		_, err := parsePair(raw)
		if err != nil {
			return err
		}
	}

	if c.MinProfitPct < 0 {
		return fmt.Errorf("MIN_PROFIT_PCT must be non-negative, got %f", c.MinProfitPct)
	}

	if c.BufferFraction < 0 || c.BufferFraction >= 1.0 {
		return fmt.Errorf("ORDER_BOOK_BUFFER must be in [0, 1), got %f", c.BufferFraction)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'live', got %q", c.ExecutionMode)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	if c.FillTimeout <= 0 {
		return fmt.Errorf("FILL_TIMEOUT must be positive, got %v", c.FillTimeout)
	}

	return nil
}

// TradedPairs parses the configured pair codes.
func (c *Config) TradedPairs() ([]types.Pair, error) {
	pairs := make([]types.Pair, 0, len(c.Pairs))
	for _, raw := range c.Pairs {
		pair, err := parsePair(raw)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// MinProfit returns the margin floor as a decimal.
func (c *Config) MinProfit() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPct)
}

// Buffer returns the order book buffer fraction as a decimal.
func (c *Config) Buffer() decimal.Decimal {
	return decimal.NewFromFloat(c.BufferFraction)
}

// Currencies returns per-currency order and transfer minimums for every
// currency appearing in the traded pairs. Values are conservative
// exchange-agnostic floors; per-venue minimums come from the venues
// themselves at init time.
func (c *Config) Currencies() types.CurrencyTable {
	known := types.CurrencyTable{
		"BTC":  {MinOrderSize: dec("0.0001"), MinTransferSize: dec("0.001"), WithdrawFeeEstimate: dec("0.0005")},
		"ETH":  {MinOrderSize: dec("0.005"), MinTransferSize: dec("0.02"), WithdrawFeeEstimate: dec("0.005")},
		"LTC":  {MinOrderSize: dec("0.1"), MinTransferSize: dec("0.5"), WithdrawFeeEstimate: dec("0.001")},
		"USD":  {MinOrderSize: dec("10"), MinTransferSize: dec("50"), WithdrawFeeEstimate: dec("25")},
		"EUR":  {MinOrderSize: dec("10"), MinTransferSize: dec("50"), WithdrawFeeEstimate: dec("25")},
		"USDT": {MinOrderSize: dec("10"), MinTransferSize: dec("50"), WithdrawFeeEstimate: dec("10")},
	}

	table := types.CurrencyTable{}
	for _, raw := range c.Pairs {
		pair, err := parsePair(raw)
		if err != nil {
			continue
		}
		table[pair.Base] = known[pair.Base]
		table[pair.Quote] = known[pair.Quote]
	}
	return table
}

func parsePair(raw string) (types.Pair, error) {
	base, quote, ok := strings.Cut(raw, "/")
	if !ok || base == "" || quote == "" {
		return types.Pair{}, fmt.Errorf("PAIRS entry %q must be BASE/QUOTE", raw)
	}
	return types.NewPair(strings.ToUpper(base), strings.ToUpper(quote)), nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
