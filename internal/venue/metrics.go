package venue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BreakerTripsTotal counts breaker trips per venue.
	BreakerTripsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_venue_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"venue"},
	)

	// BreakerState is 1 while a venue's breaker is tripped.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_venue_breaker_tripped",
			Help: "Whether the venue circuit breaker is currently tripped",
		},
		[]string{"venue"},
	)

	// BalanceGauge tracks cached balances per venue and currency.
	BalanceGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_venue_balance",
			Help: "Last refreshed balance per venue and currency",
		},
		[]string{"venue", "currency"},
	)
)
