package feecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_feecache_hits_total",
		Help: "Total number of fee cache hits",
	})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_feecache_misses_total",
		Help: "Total number of fee cache misses",
	})

	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_feecache_sets_total",
		Help: "Total number of fee cache sets",
	})
)
