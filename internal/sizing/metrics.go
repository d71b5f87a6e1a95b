package sizing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// QuotesTotal counts profitable quotes produced.
	QuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_sizing_quotes_total",
		Help: "Total number of profitable opportunity quotes produced",
	})

	// RejectedTotal counts sizing rejections by reason.
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_sizing_rejected_total",
			Help: "Total number of venue pairs rejected during sizing",
		},
		[]string{"reason"},
	)

	// NetProfitPct observes the margin of produced quotes.
	NetProfitPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_sizing_net_profit_pct",
		Help:    "Net percent profit of produced quotes",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
)
