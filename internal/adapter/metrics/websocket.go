package metrics

import "github.com/prometheus/client_golang/prometheus"

// Connection attempt results recorded on WebSocketMetrics.ConnectionsTotal.
const (
	ConnectAccepted  = "accepted"
	ConnectDuplicate = "duplicate"
	ConnectRejected  = "rejected"
	ConnectError     = "error"
)

// WebSocketMetrics holds Prometheus metrics for WebSocket connections.
type WebSocketMetrics struct {
	ActiveConnections  prometheus.Gauge
	ConnectionsTotal   *prometheus.CounterVec
	FrameWriteDuration prometheus.Histogram
	PingFailures       prometheus.Counter
	RateLimited        prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_total",
			Help:      "WebSocket connection attempts by result.",
		}, []string{"result"}),
		FrameWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "frame_write_duration_seconds",
			Help:      "Time spent writing one outbound frame.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Keepalive pings that could not be written.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rate_limited_requests_total",
			Help:      "Inbound requests rejected by the per-connection rate limit.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsTotal, m.FrameWriteDuration, m.PingFailures, m.RateLimited)
	return m
}
