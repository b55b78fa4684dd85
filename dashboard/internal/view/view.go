package view

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/fieldwatch/fieldwatch/dashboard/internal/fetch"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// ErrNotReady is returned by edits attempted before the data has loaded.
var ErrNotReady = errors.New("view: data not loaded")

// Status is the load state of a view.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetcher loads one section of the dashboard document. *fetch.Client
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, key types.Key) (json.RawMessage, error)
}

// State is a point-in-time copy of a view.
type State struct {
	Key    types.Key
	Status Status
	Data   json.RawMessage // working copy, set when Ready
	Err    string          // set when Failed
}

// View loads and holds one key of the dashboard document.
type View struct {
	key      types.Key
	fetcher  Fetcher
	onChange func(State)

	mu      sync.Mutex
	state   State
	gen     uint64
	mounted bool
	cancel  context.CancelFunc
	settled chan struct{}
}

// New creates an unmounted View for key. onChange, if non-nil, is called
// with every new state while the view's lock is held; it must not call
// back into the View.
func New(key types.Key, f Fetcher, onChange func(State)) *View {
	settled := make(chan struct{})
	close(settled)
	return &View{
		key:      key,
		fetcher:  f,
		onChange: onChange,
		state:    State{Key: key, Status: StatusIdle},
		settled:  settled,
	}
}

// Key returns the document key this view loads.
func (v *View) Key() types.Key {
	return v.key
}

// Mount starts loading. Mounting an already mounted view abandons the
// previous request and starts over.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	v.gen++
	gen := v.gen
	v.cancel = cancel
	v.mounted = true
	settled := make(chan struct{})
	v.settled = settled
	v.setLocked(State{Key: v.key, Status: StatusLoading})
	v.mu.Unlock()

	go v.load(ctx, gen, settled)
}

// Unmount cancels any in-flight request. No state change is applied once
// Unmount returns.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	v.mounted = false
	v.gen++
	v.cancel()
	v.cancel = nil
}

// State returns a copy of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Settled is closed once the latest load has finished, whether its result
// was applied or dropped.
func (v *View) Settled() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settled
}

// Update replaces the working copy with fn's result. It fails with
// ErrNotReady unless the view is mounted and loaded.
func (v *View) Update(fn func(json.RawMessage) (json.RawMessage, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted || v.state.Status != StatusReady {
		return ErrNotReady
	}
	next, err := fn(v.state.Data)
	if err != nil {
		return err
	}
	v.setLocked(State{Key: v.key, Status: StatusReady, Data: next})
	return nil
}

func (v *View) load(ctx context.Context, gen uint64, settled chan struct{}) {
	defer close(settled)

	data, err := v.fetcher.Fetch(ctx, v.key)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted || gen != v.gen {
		return
	}
	switch {
	case err == nil:
		v.setLocked(State{Key: v.key, Status: StatusReady, Data: data})
	case fetch.IsAborted(err):
		// Cancelled by a remount or by the parent context; not a failure.
	default:
		v.setLocked(State{Key: v.key, Status: StatusFailed, Err: err.Error()})
	}
}

func (v *View) setLocked(s State) {
	v.state = s
	if v.onChange != nil {
		v.onChange(s)
	}
}
