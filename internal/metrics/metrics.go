package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"method", "path"},
	)

	// Sessions
	SessionsAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_sessions_allocated_total",
			Help: "Session identifiers successfully bound",
		},
		[]string{"actor"}, // "user" or "guest"
	)

	SessionCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talk_session_collisions_total",
			Help: "Session allocations retried because of a uniqueness conflict",
		},
	)

	// Presence
	GuestsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talk_guests_pruned_total",
			Help: "Stale guest participants removed",
		},
	)

	// Relay
	SignalingMessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_signaling_messages_relayed_total",
			Help: "Signaling messages delivered into session mailboxes",
		},
		[]string{"type"},
	)

	SignalingPulls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_signaling_pulls_total",
			Help: "Completed pull requests",
		},
		[]string{"result"}, // "messages" or "timeout"
	)

	// Room lifecycle events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_events_published_total",
			Help: "Room lifecycle events published on the bus",
		},
		[]string{"kind"},
	)
)
