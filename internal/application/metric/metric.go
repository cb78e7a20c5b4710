package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request processing time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	enqueuesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_enqueues_total",
			Help: "Total number of waiting pool enqueues",
		},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_matches_total",
			Help: "Total number of committed pairings (counted per side)",
		},
	)

	messagesRelayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_relayed_total",
			Help: "Total number of chat messages written to the store",
		},
	)

	messageSendErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_message_send_errors_total",
			Help: "Total number of failed chat message writes",
		},
	)
)

// RecordHTTPMetrics records the metrics of one HTTP request.
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func IncrementEnqueues() {
	enqueuesTotal.Inc()
}

func IncrementMatches() {
	matchesTotal.Inc()
}

func IncrementMessagesRelayed() {
	messagesRelayedTotal.Inc()
}

func IncrementMessageSendErrors() {
	messageSendErrorsTotal.Inc()
}
