package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active stream connections per venue.
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_stream_active_connections",
			Help: "Number of active stream connections",
		},
		[]string{"venue"},
	)

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_stream_reconnect_attempts_total",
		Help: "Total number of stream reconnection attempts",
	})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_stream_reconnect_failures_total",
		Help: "Total number of stream reconnection failures",
	})

	// FramesTotal tracks raw frames received per venue.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_stream_frames_total",
			Help: "Total number of stream frames received",
		},
		[]string{"venue"},
	)

	// DecodeErrorsTotal tracks frames the decoder rejected.
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_stream_decode_errors_total",
			Help: "Total number of undecodable stream frames",
		},
		[]string{"venue"},
	)
)
