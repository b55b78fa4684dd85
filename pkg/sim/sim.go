package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

// Clamp returns v limited to r.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Display ranges for each simulated reading.
var (
	MoistureRange    = Range{Min: 20, Max: 80}
	TemperatureRange = Range{Min: 20, Max: 35}
	HumidityRange    = Range{Min: 40, Max: 90}
)

// Per-step amplitudes. A reading moves by at most its jitter; moisture also
// gains irrigationBias per step while irrigating.
const (
	moistureJitter    = 1.5
	temperatureJitter = 1.0
	humidityJitter    = 2.0

	irrigationBias = 0.5
)

// Readings is the subset of the dashboard document the simulation touches.
type Readings struct {
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Simulator is a seeded random walk. It is safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Simulator seeded with seed.
func New(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // display only
}

// Step returns r advanced by one tick.
func (s *Simulator) Step(r Readings, irrigating bool) Readings {
	s.mu.Lock()
	dm := s.delta(moistureJitter)
	dt := s.delta(temperatureJitter)
	dh := s.delta(humidityJitter)
	s.mu.Unlock()

	if irrigating {
		dm += irrigationBias
	}

	return Readings{
		Moisture:    round1(MoistureRange.Clamp(r.Moisture + dm)),
		Temperature: round1(TemperatureRange.Clamp(r.Temperature + dt)),
		Humidity:    round1(HumidityRange.Clamp(r.Humidity + dh)),
	}
}

// delta returns a uniform value in [-amp, amp). Caller holds s.mu.
func (s *Simulator) delta(amp float64) float64 {
	return (s.rng.Float64()*2 - 1) * amp
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// StampLayout formats the lastUpdate field of a simulated reading.
const StampLayout = "15:04:05"

// Stamp returns t formatted for lastUpdate.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}
