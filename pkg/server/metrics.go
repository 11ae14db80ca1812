package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/routeagent/pkg/protocol"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	sessions          prometheus.Gauge
	sessionsTotal     prometheus.Counter
	framesReceived    *prometheus.CounterVec
	framesSent        *prometheus.CounterVec
	handshakeFailures *prometheus.CounterVec
	writeErrors       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "sessions",
			Help:      "Number of open websocket sessions.",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "sessions_total",
			Help:      "Total number of sessions that completed the handshake.",
		}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "frames_received_total",
			Help:      "Frames received from clients by type.",
		}, []string{"type"}),
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "frames_sent_total",
			Help:      "Frames sent to clients by type.",
		}, []string{"type"}),
		handshakeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "handshake_failures_total",
			Help:      "Rejected or failed handshakes by reason.",
		}, []string{"reason"}),
		writeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "write_errors_total",
			Help:      "Frame writes that failed.",
		}),
	}
}

func (m *Metrics) sessionOpened() {
	m.sessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) sessionClosed() {
	m.sessions.Dec()
}

func (m *Metrics) frameReceived(t protocol.FrameType) {
	m.framesReceived.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) frameSent(t protocol.FrameType) {
	m.framesSent.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) handshakeFailed(reason string) {
	m.handshakeFailures.WithLabelValues(reason).Inc()
}
