package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BalanceRefreshesTotal counts successful balance refreshes per venue.
	BalanceRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_coordinator_balance_refreshes_total",
			Help: "Total number of successful balance refreshes",
		},
		[]string{"venue"},
	)

	// RefreshErrorsTotal counts failed balance refreshes per venue.
	RefreshErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_coordinator_refresh_errors_total",
			Help: "Total number of failed balance refreshes",
		},
		[]string{"venue"},
	)

	// RebalanceTransfersTotal counts executed rebalancing transfers.
	RebalanceTransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_coordinator_rebalance_transfers_total",
			Help: "Total number of executed rebalancing transfers",
		},
		[]string{"currency"},
	)

	// RebalanceSkippedTotal counts rebalancing cycles skipped per currency.
	RebalanceSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_coordinator_rebalance_skipped_total",
			Help: "Total number of skipped rebalancing cycles",
		},
		[]string{"currency", "reason"},
	)

	// TransferCredits tracks the banked transfer-fee credit per currency.
	TransferCredits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_coordinator_transfer_credits",
			Help: "Banked transfer-fee credit available for rebalancing",
		},
		[]string{"currency"},
	)
)
