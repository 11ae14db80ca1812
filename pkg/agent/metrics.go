package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the agent's Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "routeagent").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// Metrics holds the collectors updated by agents and routers. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	broadcasts    *prometheus.CounterVec
	deliveries    prometheus.Counter
	subscribers   prometheus.Gauge
	codecErrors   *prometheus.CounterVec
	adapterErrors *prometheus.CounterVec
	routingMisses prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	config := MetricsConfig{Namespace: "routeagent"}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of route requests handled, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcasts_total",
			Help:        "Total number of broadcasts, by trigger (request or popstate)",
			ConstLabels: config.ConstLabels,
		}, []string{"source"}),

		deliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deliveries_total",
			Help:        "Total number of routes queued to subscribers",
			ConstLabels: config.ConstLabels,
		}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Number of connected subscribers",
			ConstLabels: config.ConstLabels,
		}),

		codecErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "codec_errors_total",
			Help:        "Total number of state encode/decode failures",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		adapterErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "adapter_errors_total",
			Help:        "Total number of failed history writes",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		routingMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routing_misses_total",
			Help:        "Total number of resolutions where no routing option matched",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordRequest(kind RequestKind) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) recordBroadcast(source string, delivered int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(source).Inc()
	m.deliveries.Add(float64(delivered))
}

func (m *Metrics) recordResponse() {
	if m == nil {
		return
	}
	m.deliveries.Inc()
}

// addSubscribers moves the gauge by delta. Agents sharing one Metrics each
// contribute their own count.
func (m *Metrics) addSubscribers(delta int) {
	if m == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}

func (m *Metrics) recordCodecError(op string) {
	if m == nil {
		return
	}
	m.codecErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) recordAdapterError(op string) {
	if m == nil {
		return
	}
	m.adapterErrors.WithLabelValues(op).Inc()
}

// RecordRoutingMiss counts a resolution that matched no option.
func (m *Metrics) RecordRoutingMiss() {
	if m == nil {
		return
	}
	m.routingMisses.Inc()
}
