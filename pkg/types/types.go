package types

import (
	"bytes"
	"encoding/json"
)

// Key names one top-level section of the dashboard document.
type Key string

// Known keys. The set is closed: anything else is answered with 404.
const (
	KeyAlert     Key = "alert"
	KeyDashboard Key = "dashboard"
	KeyReports   Key = "reports"
	KeySchedule  Key = "schedule"
	KeySettings  Key = "settings"
)

// Keys lists every known key in the order they are advertised by GET /api/.
var Keys = []Key{KeyAlert, KeyDashboard, KeyReports, KeySchedule, KeySettings}

// ParseKey matches s exactly (case-sensitive) against the known keys.
func ParseKey(s string) (Key, bool) {
	for _, k := range Keys {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Document is the root DashboardDocument: each known key maps to an opaque
// JSON sub-document whose shape is never validated.
type Document map[Key]json.RawMessage

// Get returns the sub-document for k. Absent and empty values both report false.
func (d Document) Get(k Key) (json.RawMessage, bool) {
	raw, ok := d[k]
	if !ok || IsEmpty(raw) {
		return nil, false
	}
	return raw, true
}

// IsEmpty reports whether raw carries no usable data: nothing at all, null,
// an empty object, an empty array or an empty string.
func IsEmpty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// Envelope is the body of a successful GET /api/{key}.
type Envelope struct {
	Key  Key             `json:"key"`
	Data json.RawMessage `json:"data"`
}

// NotFound is the body of a 404 from GET /api/{key}. Requested echoes the
// decoded path segment exactly as the caller supplied it.
type NotFound struct {
	Error     string `json:"error"`
	Requested string `json:"requested"`
}

// NotFoundMessage is the fixed Error text of a NotFound body.
const NotFoundMessage = "Key not found"

// Index is the body of GET /api/.
type Index struct {
	AvailableKeys []Key `json:"availableKeys"`
}

// Health is the body of GET /health. Uptime is in seconds.
type Health struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}
