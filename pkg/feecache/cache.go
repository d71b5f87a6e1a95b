// Package feecache caches venue fee data that is expensive to fetch and
// slow to change: withdrawal (network) fees and per-pair trading fee
// rates. Entries expire so that network fee drift is picked up without
// hammering the venues on the sizing hot path.
package feecache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cache is a TTL cache of decimal fee values keyed by venue-scoped
// strings.
type Cache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Config holds fee cache configuration.
type Config struct {
	NumCounters int64 // keys tracked for frequency, ~10x max items
	MaxItems    int64
	TTL         time.Duration
	Logger      *zap.Logger
}

// New creates a Ristretto-backed fee cache.
func New(cfg *Config) (*Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxItems,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache:  cache,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
	}, nil
}

// Get retrieves a cached fee value.
func (c *Cache) Get(key string) (decimal.Decimal, bool) {
	value, found := c.cache.Get(key)
	if !found {
		MissesTotal.Inc()
		return decimal.Zero, false
	}

	HitsTotal.Inc()
	fee, ok := value.(decimal.Decimal)
	return fee, ok
}

// Set stores a fee value under the configured TTL.
func (c *Cache) Set(key string, fee decimal.Decimal) {
	if c.cache.SetWithTTL(key, fee, 1, c.ttl) {
		SetsTotal.Inc()
		c.logger.Debug("fee-cached",
			zap.String("key", key),
			zap.String("fee", fee.String()))
	}
}

// Wait blocks until pending writes are applied. Used in tests.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases cache resources.
func (c *Cache) Close() {
	c.cache.Close()
}
