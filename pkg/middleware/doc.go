// Package middleware provides HTTP middleware for the kiai debug server.
//
// Both middlewares have the standard func(http.Handler) http.Handler shape
// and plug into chi or any other net/http router:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.OpenTelemetry(middleware.WithTracerName("kiai-debug")),
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	)
//
// # OpenTelemetry
//
// Every request gets a server span named after its method and route
// pattern. The tracer comes from the global provider, so nothing is
// exported until main installs one with otel.SetTracerProvider.
//
// # Prometheus
//
// Requests are counted and timed by route pattern and status class:
//   - kiai_http_requests_total
//   - kiai_http_request_duration_seconds
//
// Route patterns are used instead of raw paths to keep label cardinality
// bounded.
package middleware
