package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fieldwatch/fieldwatch/dashboard/internal/view"
	"github.com/fieldwatch/fieldwatch/pkg/sim"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

func mustContain(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := Keys(&buf, types.Keys); err != nil {
		t.Fatalf("Keys: %v", err)
	}
	mustContain(t, buf.String(), "alert", "dashboard", "reports", "schedule", "settings")
}

func TestAlerts_ShowsStoredTotal(t *testing.T) {
	data := json.RawMessage(`{
		"summary": {"critical": 1, "warning": 0, "info": 0, "total": 99},
		"alerts": [
			{"id": "1", "type": "critical", "title": "Low Soil Moisture", "timestamp": "2 minutes ago"},
			{"id": 7, "type": "warning", "title": "Pump pressure low", "timestamp": "1 hour ago"}
		]
	}`)
	var buf bytes.Buffer
	if err := Alerts(&buf, data); err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	mustContain(t, buf.String(), "99 alerts", "Low Soil Moisture", "Pump pressure low", "2 minutes ago", "7")
}

func TestSchedule(t *testing.T) {
	data := json.RawMessage(`{"recurring": [
		{"id": 1, "name": "Morning Irrigation", "time": "06:00", "duration": 15, "days": ["Mon", "Wed"], "active": true},
		{"id": 2, "name": "Evening Watering", "time": "18:00", "duration": "25 min", "days": "weekends", "active": false}
	]}`)
	var buf bytes.Buffer
	if err := Schedule(&buf, data); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	mustContain(t, buf.String(), "Morning Irrigation", "15", "25 min", "Mon,Wed", "weekends", "on", "off")
}

func TestFields_SortedAndCompact(t *testing.T) {
	data := json.RawMessage(`{"units": "metric", "zones": [{"name": "A"}], "alerts": {"email": true}}`)
	var buf bytes.Buffer
	if err := Fields(&buf, data); err != nil {
		t.Fatalf("Fields: %v", err)
	}
	out := buf.String()
	mustContain(t, out, "metric", `[{"name":"A"}]`, `{"email":true}`)
	if strings.Index(out, "alerts") > strings.Index(out, "units") {
		t.Error("fields are not sorted")
	}
}

func TestFields_NonObjectFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Fields(&buf, json.RawMessage(`[1,2]`)); err != nil {
		t.Fatalf("Fields: %v", err)
	}
	mustContain(t, buf.String(), "1,", "2")
}

func TestDashboard(t *testing.T) {
	st := view.DashboardState{
		Status:     view.StatusReady,
		Readings:   sim.Readings{Moisture: 45.3, Temperature: 26.5, Humidity: 62},
		Irrigating: true,
		LastUpdate: "09:30:15",
		Data:       json.RawMessage(`{"aiRecommendations": [{"title": "Delay evening cycle", "message": "Rain likely."}]}`),
	}
	var buf bytes.Buffer
	if err := Dashboard(&buf, st); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	mustContain(t, buf.String(), "45.3 %", "26.5 °C", "yes", "09:30:15", "Delay evening cycle")
}

func TestDashboard_NotReady(t *testing.T) {
	var buf bytes.Buffer
	st := view.DashboardState{Status: view.StatusFailed, Err: "fetch dashboard: HTTP 404: Key not found"}
	if err := Dashboard(&buf, st); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got := buf.String(); got != "failed: fetch dashboard: HTTP 404: Key not found\n" {
		t.Errorf("got %q", got)
	}
}

func TestJSON_Indents(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, json.RawMessage(`{"a":{"b":1}}`)); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if got := buf.String(); got != "{\n  \"a\": {\n    \"b\": 1\n  }\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 100)
	if got := []rune(truncate(long)); len(got) != maxCell {
		t.Errorf("truncate: got %d runes, want %d", len(got), maxCell)
	}
	if got := truncate("short"); got != "short" {
		t.Errorf("truncate(short): got %q", got)
	}
}
