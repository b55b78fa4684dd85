package api

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	requestIDSize     = 16
	maxInboundID      = 64
)

type ctxKey struct{}

// RequestID returns the ID Middleware attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Observer receives one observation per served request. *metrics.Metrics
// satisfies it.
type Observer interface {
	ObserveRequest(route string, code int, d time.Duration)
}

// Middleware wraps next with request IDs, an access log line and, when obs
// is non-nil, request metrics.
func Middleware(next http.Handler, obs Observer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxInboundID {
			id = newRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
			"request_id", id,
		)
		if obs != nil {
			obs.ObserveRequest(Route(r.URL.Path), rec.status, elapsed)
		}
	})
}

// Route maps a request path to the bounded label used for metrics.
func Route(path string) string {
	switch {
	case path == Prefix:
		return Prefix
	case strings.HasPrefix(path, Prefix):
		return Prefix + "{key}"
	case path == "/health", path == "/metrics", path == "/ws/telemetry":
		return path
	default:
		return "other"
	}
}

func newRequestID() string {
	id, err := gonanoid.Generate(requestIDAlphabet, requestIDSize)
	if err != nil {
		// crypto/rand failure; the access log still needs something.
		return "unknown"
	}
	return id
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	s.wroteHeader = true
	return h.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
