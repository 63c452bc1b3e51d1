package metrics

import "github.com/prometheus/client_golang/prometheus"

// Delivery results recorded on DispatcherMetrics.Deliveries.
const (
	DeliveryDelivered = "delivered"
	DeliveryDropped   = "dropped"
)

// DispatcherMetrics holds Prometheus metrics for the topic dispatcher.
type DispatcherMetrics struct {
	ConnectedClients  prometheus.Gauge
	ActiveTopics      prometheus.Gauge
	Requests          *prometheus.CounterVec
	MessagesPublished prometheus.Counter
	Deliveries        *prometheus.CounterVec
	CommandQueueDepth prometheus.Gauge
}

// NewDispatcherMetrics creates and registers dispatcher metrics on the given registry.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	m := &DispatcherMetrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "connected_clients",
			Help:      "Number of registered clients.",
		}),
		ActiveTopics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "active_topics",
			Help:      "Number of topics with at least one subscriber.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "requests_total",
			Help:      "Client requests handled, by action and response status.",
		}, []string{"action", "status"}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "messages_published_total",
			Help:      "Messages accepted for fan-out.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "deliveries_total",
			Help:      "Per-subscriber enqueue attempts, by result (delivered/dropped).",
		}, []string{"result"}),
		CommandQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "command_queue_depth",
			Help:      "Commands waiting for the dispatcher loop.",
		}),
	}

	reg.MustRegister(m.ConnectedClients, m.ActiveTopics, m.Requests, m.MessagesPublished, m.Deliveries, m.CommandQueueDepth)
	return m
}
