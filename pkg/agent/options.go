package agent

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/routeagent/pkg/route"
)

const defaultInboxSize = 64

type config struct {
	codec     any
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	inboxSize int
}

// Option configures an Agent or a Registry.
type Option func(*config)

// WithCodec sets the state codec. The default is route.JSONCodec.
// New fails if the codec's type does not match the agent's state type.
func WithCodec[T any](c route.Codec[T]) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithMetrics sets the collectors the agent updates.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(cfg *config) {
		cfg.tracer = t
	}
}

// WithInboxSize sets the capacity of the agent's inbox channel.
func WithInboxSize(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.inboxSize = n
		}
	}
}
