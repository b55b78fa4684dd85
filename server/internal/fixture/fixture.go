package fixture

import (
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/fieldwatch/fieldwatch/pkg/sim"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

//go:embed data/*.json
var files embed.FS

// chartPoints is the number of hourly chart samples, the last one at the load time.
const chartPoints = 24

// ChartPoint is one sample of dashboard.chartData.
type ChartPoint struct {
	Time        string  `json:"time"`
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
}

// Load returns the fixture document as of now: chart data covers the
// chartPoints hours up to now and is generated from seed.
func Load(seed int64, now time.Time) (types.Document, error) {
	doc := make(types.Document, len(types.Keys))
	for _, k := range types.Keys {
		raw, err := files.ReadFile("data/" + string(k) + ".json")
		if err != nil {
			return nil, fmt.Errorf("fixture: read %s: %w", k, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("fixture: %s is not valid JSON", k)
		}
		doc[k] = json.RawMessage(raw)
	}

	dash, err := withGenerated(doc[types.KeyDashboard], GenerateChart(seed, now), sim.Stamp(now))
	if err != nil {
		return nil, fmt.Errorf("fixture: dashboard: %w", err)
	}
	doc[types.KeyDashboard] = dash
	return doc, nil
}

// GenerateChart returns one sample per hour for the day ending at now,
// oldest first. Labels are the unpadded hour ("7:00", "15:00").
func GenerateChart(seed int64, now time.Time) []ChartPoint {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // demo data
	out := make([]ChartPoint, 0, chartPoints)
	for i := chartPoints - 1; i >= 0; i-- {
		at := now.Add(-time.Duration(i) * time.Hour)
		h := float64(i)
		moisture := math.Floor(35 + rng.Float64()*20 + math.Sin(h/4)*10)
		temperature := math.Floor(22 + rng.Float64()*8 + math.Cos(h/3)*3)
		out = append(out, ChartPoint{
			Time:        strconv.Itoa(at.Hour()) + ":00",
			Moisture:    moisture,
			Temperature: temperature,
		})
	}
	return out
}

// withGenerated sets the chartData and lastUpdate fields of the dashboard
// sub-document.
func withGenerated(raw json.RawMessage, chart []ChartPoint, stamp string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	c, err := json.Marshal(chart)
	if err != nil {
		return nil, err
	}
	fields["chartData"] = c
	if fields["lastUpdate"], err = json.Marshal(stamp); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// Readings extracts the simulated readings from doc's dashboard section.
func Readings(doc types.Document) (sim.Readings, error) {
	var r sim.Readings
	raw, ok := doc.Get(types.KeyDashboard)
	if !ok {
		return r, fmt.Errorf("fixture: no %s section", types.KeyDashboard)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("fixture: dashboard readings: %w", err)
	}
	return r, nil
}
