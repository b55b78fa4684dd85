package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// ErrNoSuchCycle is returned by ToggleRecurring for an unknown id.
var ErrNoSuchCycle = errors.New("view: no recurring cycle with that id")

// Schedule is the schedule view. Toggling a recurring cycle edits the
// working copy only.
type Schedule struct {
	*View
}

// NewSchedule creates an unmounted schedule view reading through f.
func NewSchedule(f Fetcher, onChange func(State)) *Schedule {
	return &Schedule{View: New(types.KeySchedule, f, onChange)}
}

// ToggleRecurring flips the active flag of the recurring cycle with id and
// returns the new value. A cycle without the flag counts as inactive.
func (s *Schedule) ToggleRecurring(id int) (bool, error) {
	var active bool
	err := s.Update(func(data json.RawMessage) (json.RawMessage, error) {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("schedule: decode: %w", err)
		}
		var cycles []map[string]json.RawMessage
		if raw, ok := doc["recurring"]; ok {
			if err := json.Unmarshal(raw, &cycles); err != nil {
				return nil, fmt.Errorf("schedule: decode recurring: %w", err)
			}
		}

		i := indexOfCycle(cycles, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %d", ErrNoSuchCycle, id)
		}
		active = !activeFlag(cycles[i]["active"])
		cycles[i]["active"] = json.RawMessage(fmt.Sprintf("%t", active))

		raw, err := json.Marshal(cycles)
		if err != nil {
			return nil, err
		}
		doc["recurring"] = raw
		return json.Marshal(doc)
	})
	return active, err
}

// Recurring decodes the recurring cycles from the working copy.
func (s *Schedule) Recurring() ([]RecurringCycle, error) {
	st := s.State()
	if st.Status != StatusReady {
		return nil, ErrNotReady
	}
	return DecodeRecurring(st.Data)
}

// RecurringCycle is one recurring schedule entry. Only the active flag is
// interpreted; the other fields are kept exactly as the server sent them.
type RecurringCycle struct {
	ID       json.RawMessage
	Name     json.RawMessage
	Time     json.RawMessage
	Duration json.RawMessage
	Days     json.RawMessage
	Active   bool
}

// DecodeRecurring extracts the recurring cycles from a schedule
// sub-document. A document without a recurring list has no cycles.
func DecodeRecurring(data json.RawMessage) ([]RecurringCycle, error) {
	var doc struct {
		Recurring []map[string]json.RawMessage `json:"recurring"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schedule: decode: %w", err)
	}
	out := make([]RecurringCycle, 0, len(doc.Recurring))
	for _, c := range doc.Recurring {
		out = append(out, RecurringCycle{
			ID:       c["id"],
			Name:     c["name"],
			Time:     c["time"],
			Duration: c["duration"],
			Days:     c["days"],
			Active:   activeFlag(c["active"]),
		})
	}
	return out, nil
}

// activeFlag reads an active flag; anything but true counts as inactive.
func activeFlag(raw json.RawMessage) bool {
	var b bool
	return json.Unmarshal(raw, &b) == nil && b
}

// cycleID reads a numeric id, sent either as a number or a numeric string.
func cycleID(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func indexOfCycle(cycles []map[string]json.RawMessage, id int) int {
	for i, c := range cycles {
		if got, ok := cycleID(c["id"]); ok && got == id {
			return i
		}
	}
	return -1
}
