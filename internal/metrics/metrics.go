package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framecast_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Connection metrics
	ConnectionsAdmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framecast_connections_admitted_total",
			Help: "Connections that passed the connection rate limit",
		},
	)

	ConnectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framecast_connections_rejected_total",
			Help: "Connections refused by the connection rate limit",
		},
	)

	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framecast_connected_clients",
			Help: "Currently registered clients",
		},
	)

	// Business metrics
	MessagesAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framecast_messages_accepted_total",
			Help: "Messages accepted into history",
		},
		[]string{"protocol"}, // "current" or "legacy"
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framecast_messages_rejected_total",
			Help: "Messages rejected before acceptance",
		},
		[]string{"reason"},
	)

	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framecast_history_size",
			Help: "Entries currently held in history",
		},
	)

	HistoryEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framecast_history_evicted_total",
			Help: "Entries evicted from history by age or capacity",
		},
	)

	DroppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framecast_dropped_events_total",
			Help: "Events dropped because a client was not reading",
		},
	)

	// Infrastructure metrics
	LimiterErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framecast_limiter_errors_total",
			Help: "Rate limiter backend failures (treated as allowed)",
		},
		[]string{"limiter"},
	)

	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framecast_transcode_duration_seconds",
			Help:    "Frame transcoding latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	ArchiveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framecast_archive_failures_total",
			Help: "Archival attempts that failed or were dropped",
		},
		[]string{"reason"},
	)
)
