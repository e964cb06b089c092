package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Messaging Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Messages persisted
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "messages_total",
			Help:      "Total messages persisted",
		},
		[]string{"type"},
	)

	// Realtime events fanned out
	EventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "events_broadcast_total",
			Help:      "Total realtime events fanned out to connections",
		},
		[]string{"event"},
	)

	// Live connection gauge
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "active_connections",
			Help:      "Currently open WebSocket connections",
		},
	)

	// Live room gauge
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "active_rooms",
			Help:      "Rooms with at least one joined connection",
		},
	)

	// Moderation outbox depth gauge
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "moderation_queue_depth",
			Help:      "Moderation event outbox depth",
		},
	)

	// Webhook delivery counter
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "webhook_deliveries_total",
			Help:      "Moderation webhook delivery attempts",
		},
		[]string{"status"},
	)

	// DB query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "alumni",
			Subsystem: "messaging",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"query_type"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordMessage records a persisted message
func RecordMessage(messageType string) {
	MessagesTotal.WithLabelValues(messageType).Inc()
}

// RecordBroadcast records one event fanned out to a room
func RecordBroadcast(event string) {
	EventsBroadcastTotal.WithLabelValues(event).Inc()
}

// SetQueueDepth sets the current outbox depth
func SetQueueDepth(depth int64) {
	QueueDepth.Set(float64(depth))
}

// RecordWebhookDelivery records a webhook delivery outcome
func RecordWebhookDelivery(status string) {
	WebhookDeliveriesTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(queryType string, durationSec float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(durationSec)
}
