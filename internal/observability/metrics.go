package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// ApprovalTransitions counts committed approval state transitions.
	ApprovalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_approval_transitions_total",
		Help: "Approval state transitions by transition and outcome",
	}, []string{"transition", "outcome"})

	// SignupOutcomes counts signup attempts by result.
	SignupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_signup_outcomes_total",
		Help: "Signup attempts by outcome",
	}, []string{"outcome"})

	// ChatProxyLatency records downstream chat call latency.
	ChatProxyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_chat_proxy_latency_seconds",
		Help:    "Chat proxy downstream latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"mode", "outcome"})

	// FeedSubscribers is the number of active in-process change feed subscribers.
	FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_feed_subscribers",
		Help: "Active in-process profile change feed subscribers",
	})

	// ClientSyncReductions counts snapshots offered to client reducers by source and result.
	ClientSyncReductions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_clientsync_reductions_total",
		Help: "Client-side profile snapshots by source and whether they were applied",
	}, []string{"source", "result"})

	// FeedDrops counts change events dropped for slow in-process subscribers.
	FeedDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_feed_drops_total",
		Help: "Profile change events dropped for slow feed subscribers",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordWebSocketEvent increments the WebSocket events counter for the event type.
func RecordWebSocketEvent(eventType string) {
	WebSocketEventsTotal.WithLabelValues(eventType).Inc()
}
