// Package api implements the HTTP Key-Value API for fieldwatch-server.
//
// New(store) returns an http.Handler that serves:
//
//	GET /api/       {"availableKeys": [...]} in the fixed key order
//	GET /api/{key}  {"key": k, "data": <sub-document>}; 404 {"error","requested"} otherwise
//
// NewHealth(start, now) serves GET /health and never touches the store, so
// it can be mounted before the store has connected.
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Never write to the store
//
// Store failures are logged and answered with 503 while the read breaker is
// open, 500 otherwise. Middleware adds X-Request-ID, one access log line per
// request and optional request metrics. No external HTTP framework is used.
package api
