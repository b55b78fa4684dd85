// Package render turns dashboard views into terminal tables or indented
// JSON. Every renderer decodes only the fields it shows and leaves the
// rest of the sub-document alone.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/fieldwatch/fieldwatch/dashboard/internal/view"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// maxCell truncates long free-text cells.
const maxCell = 60

// JSON writes data indented.
func JSON(w io.Writer, data json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("render: decode: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Key renders data with the table layout for key.
func Key(w io.Writer, key types.Key, data json.RawMessage) error {
	switch key {
	case types.KeyAlert:
		return Alerts(w, data)
	case types.KeySchedule:
		return Schedule(w, data)
	default:
		return Fields(w, data)
	}
}

// Keys renders the list advertised by GET /api/.
func Keys(w io.Writer, keys []types.Key) error {
	tw := newTable(w, "KEY")
	for _, k := range keys {
		tw.Append([]string{string(k)})
	}
	tw.Render()
	return nil
}

// Dashboard renders the live readings of the dashboard view.
func Dashboard(w io.Writer, st view.DashboardState) error {
	if st.Status != view.StatusReady {
		return status(w, st.Status, st.Err)
	}
	irrigating := "no"
	if st.Irrigating {
		irrigating = "yes"
	}
	tw := newTable(w, "READING", "VALUE")
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	tw.AppendBulk([][]string{
		{"Soil moisture", fmt.Sprintf("%.1f %%", st.Readings.Moisture)},
		{"Temperature", fmt.Sprintf("%.1f °C", st.Readings.Temperature)},
		{"Humidity", fmt.Sprintf("%.1f %%", st.Readings.Humidity)},
		{"Irrigating", irrigating},
		{"Last update", st.LastUpdate},
	})
	tw.Render()

	var extra struct {
		AIRecommendations []struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"aiRecommendations"`
	}
	if err := json.Unmarshal(st.Data, &extra); err != nil || len(extra.AIRecommendations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	rt := newTable(w, "RECOMMENDATION", "DETAIL")
	for _, r := range extra.AIRecommendations {
		rt.Append([]string{r.Title, truncate(r.Message)})
	}
	rt.Render()
	return nil
}

// Alerts renders the summary line and the alert list. The summary total is
// shown as stored, never recomputed.
func Alerts(w io.Writer, data json.RawMessage) error {
	var doc struct {
		Summary struct {
			Critical int `json:"critical"`
			Warning  int `json:"warning"`
			Info     int `json:"info"`
			Total    int `json:"total"`
		} `json:"summary"`
		Alerts []struct {
			ID        json.RawMessage `json:"id"`
			Type      json.RawMessage `json:"type"`
			Title     json.RawMessage `json:"title"`
			Timestamp json.RawMessage `json:"timestamp"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("render: alerts: %w", err)
	}
	s := doc.Summary
	fmt.Fprintf(w, "%d alerts: %d critical, %d warning, %d info\n", s.Total, s.Critical, s.Warning, s.Info)

	tw := newTable(w, "ID", "TYPE", "TITLE", "WHEN")
	for _, a := range doc.Alerts {
		tw.Append([]string{cell(a.ID), cell(a.Type), cell(a.Title), cell(a.Timestamp)})
	}
	tw.Render()
	return nil
}

// Schedule renders the recurring cycles. Fields are printed as sent, so a
// numeric duration shows as its number.
func Schedule(w io.Writer, data json.RawMessage) error {
	cycles, err := view.DecodeRecurring(data)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	tw := newTable(w, "ID", "NAME", "TIME", "DURATION", "DAYS", "ACTIVE")
	for _, c := range cycles {
		active := "off"
		if c.Active {
			active = "on"
		}
		tw.Append([]string{
			cell(c.ID),
			cell(c.Name),
			cell(c.Time),
			cell(c.Duration),
			days(c.Days),
			active,
		})
	}
	tw.Render()
	return nil
}

// days joins a list of day names, falling back to cell for anything else.
func days(raw json.RawMessage) string {
	var ds []string
	if err := json.Unmarshal(raw, &ds); err != nil {
		return cell(raw)
	}
	return strings.Join(ds, ",")
}

// Fields renders the top-level members of an object as FIELD/VALUE rows,
// sorted by name. Nested values are shown as compact JSON. Non-objects are
// rendered as indented JSON.
func Fields(w io.Writer, data json.RawMessage) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return JSON(w, data)
	}
	names := make([]string, 0, len(doc))
	for k := range doc {
		names = append(names, k)
	}
	sort.Strings(names)

	tw := newTable(w, "FIELD", "VALUE")
	for _, k := range names {
		tw.Append([]string{k, cell(doc[k])})
	}
	tw.Render()
	return nil
}

// --- helpers ----------------------------------------------------------------

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func status(w io.Writer, s view.Status, msg string) error {
	if msg != "" {
		_, err := fmt.Fprintf(w, "%s: %s\n", s, msg)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n", s)
	return err
}

// cell renders one JSON value for a table cell: strings unquoted, anything
// else compact.
func cell(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return truncate(s)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return truncate(string(raw))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return truncate(string(raw))
	}
	return truncate(string(b))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}
