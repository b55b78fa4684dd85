// Package metrics exposes Prometheus instrumentation for fieldwatch-server.
//
//	fieldwatch_http_requests_total{route,code}
//	fieldwatch_http_request_duration_seconds{route}
//	fieldwatch_store_lookups_total{backend,result}   result = hit | miss | error
//
// Routes are the registered patterns ("/api/", "/api/{key}", "/health"),
// never raw paths, so unknown keys cannot grow label cardinality.
// Handler serves the text exposition from a private registry.
package metrics
