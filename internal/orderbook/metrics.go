package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// UpdatesAppliedTotal tracks applied book entries by venue and kind.
	UpdatesAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_book_updates_applied_total",
			Help: "Total number of order book entries applied",
		},
		[]string{"venue", "kind"},
	)

	// DuplicatesDroppedTotal tracks updates ignored as duplicates.
	DuplicatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_book_duplicates_dropped_total",
			Help: "Total number of duplicate sequenced updates dropped",
		},
		[]string{"venue"},
	)

	// SequenceGapsTotal tracks hard sequence gaps requiring resync.
	SequenceGapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_book_sequence_gaps_total",
			Help: "Total number of sequence gaps detected",
		},
		[]string{"venue"},
	)

	// BookDepth tracks the number of levels per book side.
	BookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_book_depth_levels",
			Help: "Number of price levels currently held per book side",
		},
		[]string{"venue", "pair", "side"},
	)
)
