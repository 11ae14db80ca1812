package server

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/routeagent/pkg/protocol"
)

// Paths served by the server. Application pages may use any other path.
const (
	WebSocketPath  = "/_routeagent/ws"
	ClientPath     = "/_routeagent/client.js"
	HealthPath     = "/healthz"
	RootElementID  = "routeagent-root"
	DefaultMetrics = "/metrics"
)

// Config holds server settings.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string

	// HandshakeTimeout bounds the wait for the client's hello frame.
	HandshakeTimeout time.Duration

	// ReadTimeout is how long a session may stay silent, pongs included.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration

	// PingInterval is the keepalive period.
	PingInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxMessageSize caps inbound frames in bytes.
	MaxMessageSize int64

	// MaxSessions caps concurrent sessions. 0 means unlimited.
	MaxSessions int

	// AllowedOrigins lists origins accepted on upgrade. Empty means the
	// request's own host only.
	AllowedOrigins []string

	// InboxSize is the buffer of each session's agent inbox.
	InboxSize int

	// MetricsPath is where Registry is exposed. Empty disables metrics.
	MetricsPath string

	// Namespace prefixes metric names.
	Namespace string

	// Registry collects the server's and the agents' metrics. A fresh
	// registry is created when nil.
	Registry *prometheus.Registry

	// Tracer is handed to every session's agent.
	Tracer trace.Tracer

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:             ":8080",
		HandshakeTimeout: 5 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     25 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		MaxMessageSize:   protocol.MaxMessageSize,
		InboxSize:        64,
		MetricsPath:      DefaultMetrics,
		Namespace:        "routeagent",
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.Addr == "" {
		out.Addr = def.Addr
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = def.HandshakeTimeout
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = def.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.PingInterval <= 0 || out.PingInterval >= out.ReadTimeout {
		out.PingInterval = out.ReadTimeout * 9 / 10
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = def.ShutdownTimeout
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = def.MaxMessageSize
	}
	if out.InboxSize <= 0 {
		out.InboxSize = def.InboxSize
	}
	if out.Namespace == "" {
		out.Namespace = def.Namespace
	}
	if out.Registry == nil {
		out.Registry = prometheus.NewRegistry()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
