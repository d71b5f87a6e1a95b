package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ExecutionsTotal counts paired-order attempts by terminal outcome.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_execution_total",
			Help: "Total number of paired-order executions by outcome",
		},
		[]string{"outcome"},
	)

	// LegFailuresTotal counts single-leg failures per venue and side.
	LegFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_execution_leg_failures_total",
			Help: "Total number of failed order legs",
		},
		[]string{"venue", "side"},
	)

	// FillLatency observes the time from placement to a closed order.
	FillLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossarb_execution_fill_latency_seconds",
			Help:    "Time from order placement to terminal state",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"venue"},
	)

	// ProfitRealized accumulates net profit from settled trades, in
	// quote-currency units.
	ProfitRealized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_execution_profit_realized_total",
		Help: "Cumulative net profit of settled trades",
	})
)
