package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labbook_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "labbook_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "labbook_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts events pushed to WebSocket clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labbook_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labbook_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EventsPublished counts domain events by kind.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labbook_events_published_total",
		Help: "Total domain events published by kind",
	}, []string{"kind"})

	// FeedBuildLatency records how long a feed page takes to assemble.
	FeedBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "labbook_feed_build_latency_seconds",
		Help:    "Time to load, rank and sectionize one feed page",
		Buckets: prometheus.DefBuckets,
	})

	// FeedSectionSize records how many posts land in each feed section.
	FeedSectionSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "labbook_feed_section_size",
		Help:    "Number of posts per feed section",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 15},
	}, []string{"section"})

	// RelationTransitions counts collaboration state changes by effect.
	RelationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labbook_relation_transitions_total",
		Help: "Collaboration relation transitions by effect",
	}, []string{"effect"})

	// OptimisticRollbacks counts tentative cache writes that were reverted.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labbook_optimistic_rollbacks_total",
		Help: "Tentative updates reverted after a failed write",
	}, []string{"operation"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
