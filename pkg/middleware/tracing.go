package middleware

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/vango-dev/routeagent/pkg/middleware"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// Tracer creates the spans. Default: the global provider's tracer.
	Tracer trace.Tracer

	// Filter decides which requests are traced. Nil traces everything.
	Filter func(r *http.Request) bool

	// Attributes adds custom attributes to each span.
	Attributes func(r *http.Request) []attribute.KeyValue
}

// TracingOption configures the tracing middleware.
type TracingOption func(*TracingConfig)

// WithTracer sets the tracer. A nil tracer keeps the default.
func WithTracer(t trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		if t != nil {
			c.Tracer = t
		}
	}
}

// WithFilter skips tracing for requests where fn returns false.
func WithFilter(fn func(r *http.Request) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = fn
	}
}

// WithAttributes sets a custom attribute extractor.
func WithAttributes(fn func(r *http.Request) []attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.Attributes = fn
	}
}

// Tracing starts a server span for every request and hands the span's
// context to the next handler. Responses with a 5xx status mark the span as
// failed.
//
// Configure the global provider in main() when no tracer is passed:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func Tracing(opts ...TracingOption) func(http.Handler) http.Handler {
	config := TracingConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(defaultTracerName)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Filter != nil && !config.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.RequestURI()),
				attribute.String("net.peer.addr", r.RemoteAddr),
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, attribute.String("http.request_id", id))
			}
			if config.Attributes != nil {
				attrs = append(attrs, config.Attributes(r)...)
			}

			ctx, span := config.Tracer.Start(r.Context(), spanName(r),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

func spanName(r *http.Request) string {
	return fmt.Sprintf("HTTP %s", r.Method)
}
