package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldwatch/fieldwatch/pkg/types"
	"github.com/fieldwatch/fieldwatch/server/internal/store"
)

const namespace = "fieldwatch"

// Metrics holds the server's collectors and the registry they live in.
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lookups  *prometheus.CounterVec
}

// New creates a Metrics with a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route pattern and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "lookups_total",
			Help:      "Document store lookups, by backend and result.",
		}, []string{"backend", "result"}),
	}
	m.reg.MustRegister(
		m.requests,
		m.duration,
		m.lookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the Prometheus text exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

// WrapStore returns s with every Get counted under backend.
func (m *Metrics) WrapStore(s store.Store, backend string) store.Store {
	return &instrumentedStore{next: s, backend: backend, lookups: m.lookups}
}

type instrumentedStore struct {
	next    store.Store
	backend string
	lookups *prometheus.CounterVec
}

func (s *instrumentedStore) Get(ctx context.Context, k types.Key) (json.RawMessage, error) {
	raw, err := s.next.Get(ctx, k)
	result := "hit"
	switch {
	case errors.Is(err, store.ErrNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	s.lookups.WithLabelValues(s.backend, result).Inc()
	return raw, err
}

func (s *instrumentedStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
