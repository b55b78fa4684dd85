package view

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

const scheduleJSON = `{
	"todaySchedule": [{"id": "1", "time": "06:00", "duration": 15, "status": "completed", "type": "auto"}],
	"recurring": [
		{"id": 1, "name": "Morning Irrigation", "time": "06:00", "duration": 15, "days": ["Mon", "Wed", "Fri"], "active": true},
		{"id": 2, "name": "Evening Watering", "time": "18:00", "duration": 20, "days": ["Tue", "Thu", "Sat"], "active": false},
		{"id": 3, "name": "No flag", "time": "07:30", "duration": "45 min", "days": ["Sun"]}
	]
}`

func mountSchedule(t *testing.T) *Schedule {
	t.Helper()
	s := NewSchedule(staticFetcher(scheduleJSON), nil)
	s.Mount(context.Background())
	t.Cleanup(s.Unmount)
	waitSettled(t, s.Settled())
	return s
}

func activeByID(t *testing.T, s *Schedule) map[string]bool {
	t.Helper()
	cycles, err := s.Recurring()
	if err != nil {
		t.Fatalf("Recurring: %v", err)
	}
	out := make(map[string]bool, len(cycles))
	for _, c := range cycles {
		out[string(c.ID)] = c.Active
	}
	return out
}

func TestSchedule_ToggleRecurring(t *testing.T) {
	s := mountSchedule(t)

	got, err := s.ToggleRecurring(1)
	if err != nil {
		t.Fatalf("ToggleRecurring(1): %v", err)
	}
	if got {
		t.Error("ToggleRecurring(1): got active, want inactive")
	}
	want := map[string]bool{"1": false, "2": false, "3": false}
	if a := activeByID(t, s); len(a) != 3 || a["1"] != want["1"] || a["2"] != want["2"] || a["3"] != want["3"] {
		t.Errorf("active flags: got %v, want %v", a, want)
	}

	if got, _ := s.ToggleRecurring(1); !got {
		t.Error("second toggle: got inactive, want active")
	}
	if got, _ := s.ToggleRecurring(3); !got {
		t.Error("toggle of cycle without flag: got inactive, want active")
	}
}

func TestSchedule_ToggleKeepsOtherFields(t *testing.T) {
	s := mountSchedule(t)
	if _, err := s.ToggleRecurring(2); err != nil {
		t.Fatalf("ToggleRecurring: %v", err)
	}

	var doc struct {
		Today     []json.RawMessage `json:"todaySchedule"`
		Recurring []struct {
			Name string   `json:"name"`
			Days []string `json:"days"`
		} `json:"recurring"`
	}
	if err := json.Unmarshal(s.State().Data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Today) != 1 || len(doc.Recurring) != 3 || doc.Recurring[1].Name != "Evening Watering" {
		t.Errorf("working copy damaged: %s", s.State().Data)
	}
}

func TestSchedule_RecurringKeepsFieldsAsSent(t *testing.T) {
	s := mountSchedule(t)
	cycles, err := s.Recurring()
	if err != nil {
		t.Fatalf("Recurring: %v", err)
	}
	if len(cycles) != 3 {
		t.Fatalf("got %d cycles, want 3", len(cycles))
	}
	c := cycles[0]
	if string(c.Duration) != "15" || string(c.Name) != `"Morning Irrigation"` || !c.Active {
		t.Errorf("cycle 1: got duration %s name %s active %v", c.Duration, c.Name, c.Active)
	}
	if string(cycles[2].Duration) != `"45 min"` {
		t.Errorf("cycle 3: duration %s", cycles[2].Duration)
	}
}

func TestSchedule_ToggleStringID(t *testing.T) {
	s := NewSchedule(staticFetcher(`{"recurring": [{"id": "7", "duration": 10, "active": false}]}`), nil)
	s.Mount(context.Background())
	t.Cleanup(s.Unmount)
	waitSettled(t, s.Settled())

	got, err := s.ToggleRecurring(7)
	if err != nil || !got {
		t.Fatalf("ToggleRecurring(7): got %v, %v; want true, nil", got, err)
	}
	if a := activeByID(t, s); !a[`"7"`] {
		t.Errorf("active flags: got %v", a)
	}
}

func TestSchedule_ToggleUnknownID(t *testing.T) {
	s := mountSchedule(t)
	before := string(s.State().Data)

	if _, err := s.ToggleRecurring(99); !errors.Is(err, ErrNoSuchCycle) {
		t.Errorf("ToggleRecurring(99): got %v, want ErrNoSuchCycle", err)
	}
	if after := string(s.State().Data); after != before {
		t.Error("failed toggle modified the working copy")
	}
}

func TestSchedule_ToggleBeforeLoad(t *testing.T) {
	s := NewSchedule(staticFetcher(scheduleJSON), nil)
	if _, err := s.ToggleRecurring(1); !errors.Is(err, ErrNotReady) {
		t.Errorf("got %v, want ErrNotReady", err)
	}
	if _, err := s.Recurring(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Recurring: got %v, want ErrNotReady", err)
	}
}
