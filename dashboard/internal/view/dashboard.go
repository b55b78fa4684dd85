package view

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldwatch/fieldwatch/pkg/sim"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// Dashboard defaults.
const (
	DefaultTickInterval = 5 * time.Second
	DefaultIrrigateFor  = 30 * time.Second
)

// DashboardOptions tunes a Dashboard. Zero values select the defaults.
type DashboardOptions struct {
	// TickInterval is the simulation step period.
	TickInterval time.Duration

	// IrrigateFor is how long StartIrrigation keeps irrigating.
	IrrigateFor time.Duration

	// Seed drives the simulator. 0 picks a time-based seed.
	Seed int64

	// Now stamps lastUpdate. Defaults to time.Now.
	Now func() time.Time

	// OnChange receives every state change, under the dashboard's lock.
	// It must not call back into the Dashboard.
	OnChange func(DashboardState)
}

// DashboardState is a point-in-time copy of the dashboard view.
type DashboardState struct {
	Status     Status
	Err        string
	Readings   sim.Readings
	Irrigating bool
	LastUpdate string

	// Data is the full working copy, simulated fields included.
	Data json.RawMessage
}

// Dashboard is the dashboard view: the loaded sub-document plus a
// simulation ticker that drifts the sensor readings while mounted.
type Dashboard struct {
	view        *View
	sim         *sim.Simulator
	interval    time.Duration
	irrigateFor time.Duration
	now         func() time.Time
	onChange    func(DashboardState)

	running atomic.Int32 // live ticker goroutines

	mu         sync.Mutex
	status     Status
	err        string
	fields     map[string]json.RawMessage
	readings   sim.Readings
	irrigating bool
	lastUpdate string
	active     bool          // mounted and loaded
	stopTick   chan struct{} // nil when no ticker is running
	timer      *time.Timer
	timerGen   uint64
}

// NewDashboard creates an unmounted dashboard view reading through f.
func NewDashboard(f Fetcher, opts DashboardOptions) *Dashboard {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.IrrigateFor <= 0 {
		opts.IrrigateFor = DefaultIrrigateFor
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	d := &Dashboard{
		sim:         sim.New(opts.Seed),
		interval:    opts.TickInterval,
		irrigateFor: opts.IrrigateFor,
		now:         opts.Now,
		onChange:    opts.OnChange,
	}
	d.view = New(types.KeyDashboard, f, d.onView)
	return d
}

// Mount starts loading the dashboard. The ticker starts once it is loaded.
func (d *Dashboard) Mount(ctx context.Context) {
	d.view.Mount(ctx)
}

// Unmount cancels loading and stops the ticker and any irrigation timer.
func (d *Dashboard) Unmount() {
	d.view.Unmount()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = false
	d.stopTickerLocked()
	d.stopTimerLocked()
}

// Settled is closed once the current load has finished.
func (d *Dashboard) Settled() <-chan struct{} {
	return d.view.Settled()
}

// State returns a copy of the current state.
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

// Tickers returns the number of simulation tickers currently running.
// It is never more than one once a restart has settled.
func (d *Dashboard) Tickers() int {
	return int(d.running.Load())
}

// StartIrrigation sets the irrigating flag at once and clears it again
// after the configured duration. Starting again while irrigating restarts
// that countdown.
func (d *Dashboard) StartIrrigation() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return ErrNotReady
	}

	d.stopTimerLocked()
	gen := d.timerGen
	d.timer = time.AfterFunc(d.irrigateFor, func() { d.expireIrrigation(gen) })

	if !d.irrigating {
		d.irrigating = true
		d.restartTickerLocked()
	}
	d.notifyLocked()
	return nil
}

// StopIrrigation clears the irrigating flag at once.
func (d *Dashboard) StopIrrigation() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return ErrNotReady
	}
	d.stopTimerLocked()
	d.setIrrigatingLocked(false)
	return nil
}

// --- internal ---------------------------------------------------------------

// onView runs under the View's lock for every load state change.
func (d *Dashboard) onView(s State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.status, d.err = s.Status, s.Err
	if s.Status != StatusReady {
		d.active = false
		d.stopTickerLocked()
		d.stopTimerLocked()
		d.notifyLocked()
		return
	}

	if err := d.loadLocked(s.Data); err != nil {
		d.status, d.err = StatusFailed, err.Error()
		d.notifyLocked()
		return
	}
	d.active = true
	d.restartTickerLocked()
	d.notifyLocked()
}

func (d *Dashboard) loadLocked(data json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("dashboard: decode: %w", err)
	}
	var flags struct {
		sim.Readings
		IsIrrigating bool   `json:"isIrrigating"`
		LastUpdate   string `json:"lastUpdate"`
	}
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("dashboard: decode readings: %w", err)
	}
	d.fields = fields
	d.readings = flags.Readings
	d.irrigating = flags.IsIrrigating
	d.lastUpdate = flags.LastUpdate
	return nil
}

func (d *Dashboard) expireIrrigation(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.timerGen || !d.active {
		return
	}
	d.timer = nil
	d.setIrrigatingLocked(false)
}

func (d *Dashboard) setIrrigatingLocked(on bool) {
	if d.irrigating == on {
		return
	}
	d.irrigating = on
	d.restartTickerLocked()
	d.notifyLocked()
}

func (d *Dashboard) stopTimerLocked() {
	d.timerGen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Dashboard) stopTickerLocked() {
	if d.stopTick != nil {
		close(d.stopTick)
		d.stopTick = nil
	}
}

// restartTickerLocked replaces the running ticker, if any, with a new one.
func (d *Dashboard) restartTickerLocked() {
	d.stopTickerLocked()
	if !d.active {
		return
	}
	stop := make(chan struct{})
	d.stopTick = stop
	d.running.Add(1)
	go d.runTicker(stop)
}

func (d *Dashboard) runTicker(stop chan struct{}) {
	defer d.running.Add(-1)
	t := time.NewTicker(d.interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !d.tick(stop) {
				return
			}
		}
	}
}

// tick advances the readings one step. It reports false once stop is no
// longer the current ticker.
func (d *Dashboard) tick(stop chan struct{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopTick != stop {
		return false
	}
	d.readings = d.sim.Step(d.readings, d.irrigating)
	d.lastUpdate = sim.Stamp(d.now())
	d.notifyLocked()
	return true
}

func (d *Dashboard) notifyLocked() {
	if d.onChange != nil {
		d.onChange(d.stateLocked())
	}
}

func (d *Dashboard) stateLocked() DashboardState {
	s := DashboardState{
		Status:     d.status,
		Err:        d.err,
		Readings:   d.readings,
		Irrigating: d.irrigating,
		LastUpdate: d.lastUpdate,
	}
	if d.status == StatusReady {
		s.Data = d.dataLocked()
	}
	return s
}

// dataLocked renders the working copy with the simulated fields applied.
func (d *Dashboard) dataLocked() json.RawMessage {
	out := make(map[string]json.RawMessage, len(d.fields)+5)
	for k, v := range d.fields {
		out[k] = v
	}
	set := func(k string, v interface{}) {
		if b, err := json.Marshal(v); err == nil {
			out[k] = b
		}
	}
	set("moisture", d.readings.Moisture)
	set("temperature", d.readings.Temperature)
	set("humidity", d.readings.Humidity)
	set("isIrrigating", d.irrigating)
	set("lastUpdate", d.lastUpdate)

	b, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return b
}
