// Package middleware provides net/http middleware for routeagent servers.
//
// It includes:
//   - OpenTelemetry tracing: one server span per HTTP request
//   - Prometheus metrics: request counts, latency and in-flight requests
//
// Both wrap the response writer with chi's WrapResponseWriter so the status
// code is observable and websocket upgrades still reach the Hijacker.
//
//	r := chi.NewRouter()
//	r.Use(middleware.Tracing(middleware.WithTracer(tracer)))
//	r.Use(middleware.NewMetrics(middleware.WithRegistry(reg)).Handler)
//
// Metric labels use the chi route pattern ("/*") rather than the raw path, so
// cardinality stays bounded however many URLs the application serves.
package middleware
