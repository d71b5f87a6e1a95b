package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CyclesTotal counts loop iterations.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_engine_cycles_total",
		Help: "Total number of arbitrage loop cycles",
	})

	// OpportunitiesFoundTotal counts quotes that cleared the margin floor.
	OpportunitiesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_engine_opportunities_found_total",
		Help: "Total number of executable opportunities found",
	})

	// CycleDuration observes the wall time of one loop cycle.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_engine_cycle_duration_seconds",
		Help:    "Duration of one arbitrage loop cycle",
		Buckets: prometheus.DefBuckets,
	})

	// StreamResyncsTotal counts sequence-gap resynchronizations per venue.
	StreamResyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_engine_stream_resyncs_total",
			Help: "Total number of stream resynchronizations after sequence gaps",
		},
		[]string{"venue"},
	)
)
