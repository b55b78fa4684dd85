package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fieldwatch/fieldwatch/pkg/types"
	"github.com/fieldwatch/fieldwatch/server/internal/store"
)

// Prefix is the path every Key-Value route lives under.
const Prefix = "/api/"

// Handler is the HTTP handler for /api/ and /api/{key}.
type Handler struct {
	store store.Store
	mux   *http.ServeMux
}

// New creates a Handler reading from st and registers its routes.
func New(st store.Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux()}
	h.mux.HandleFunc(Prefix, h.route) // subtree: "" is the index, anything else a key
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		jsonErr(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	// Exact match: a trailing slash stays part of the requested name.
	name := strings.TrimPrefix(r.URL.Path, Prefix)
	if name == "" {
		h.index(w)
		return
	}
	h.getKey(w, r, name)
}

// index returns GET /api/.
func (h *Handler) index(w http.ResponseWriter) {
	keys := make([]types.Key, len(types.Keys))
	copy(keys, types.Keys)
	jsonResp(w, http.StatusOK, types.Index{AvailableKeys: keys})
}

// getKey returns GET /api/{key}. name is the already-decoded path segment.
func (h *Handler) getKey(w http.ResponseWriter, r *http.Request, name string) {
	key, ok := types.ParseKey(name)
	if !ok {
		notFound(w, name)
		return
	}

	raw, err := h.store.Get(r.Context(), key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		notFound(w, name)
		return
	case errors.Is(err, store.ErrUnavailable):
		slog.Warn("store unavailable", "key", key, "request_id", RequestID(r.Context()), "err", err)
		jsonErr(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	case err != nil:
		slog.Error("store read failed", "key", key, "request_id", RequestID(r.Context()), "err", err)
		jsonErr(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if types.IsEmpty(raw) {
		notFound(w, name)
		return
	}

	jsonResp(w, http.StatusOK, types.Envelope{Key: key, Data: raw})
}

// --- /health ----------------------------------------------------------------

type health struct {
	start time.Time
	now   func() time.Time
}

// NewHealth returns the GET /health handler. Uptime is measured from start
// using now, which defaults to time.Now when nil.
func NewHealth(start time.Time, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	return &health{start: start, now: now}
}

func (h *health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		jsonErr(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	jsonResp(w, http.StatusOK, types.Health{
		Status: "ok",
		Uptime: h.now().Sub(h.start).Seconds(),
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func notFound(w http.ResponseWriter, requested string) {
	jsonResp(w, http.StatusNotFound, types.NotFound{
		Error:     types.NotFoundMessage,
		Requested: requested,
	})
}
