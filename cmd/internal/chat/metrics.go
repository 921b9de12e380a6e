package chat

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chat core's Prometheus instruments. All methods are
// nil-receiver safe so components can run unmetered in tests.
type Metrics struct {
	messagesSent    prometheus.Counter
	publishFailures prometheus.Counter
	deliveries      *prometheus.CounterVec
	liveSessions    prometheus.Gauge
}

// NewMetrics builds and registers the chat instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pawline_chat_messages_sent_total",
			Help: "Messages durably persisted by the message service.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pawline_chat_broadcast_publish_failures_total",
			Help: "Broadcast publish or serialization failures (message already persisted).",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawline_chat_broadcast_deliveries_total",
			Help: "Broadcast payloads received and dispatched to local sessions.",
		}, []string{"channel"}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pawline_chat_ws_sessions",
			Help: "WebSocket sessions currently attached to this process.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.messagesSent, m.publishFailures, m.deliveries, m.liveSessions)
	}
	return m
}

func (m *Metrics) messageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) publishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Metrics) deliveryObserved(channel string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel).Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}
