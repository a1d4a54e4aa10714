package streak

import (
	"time"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

// Key identifies one independent state machine.
type Key struct {
	System string
	Team   string
}

// Tracker holds one Machine per (system, team). Rows for different keys may
// be interleaved; rows for the same key must be chronological.
type Tracker struct {
	cfg      Config
	machines map[Key]*Machine
	order    []Key
	events   []Event
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, machines: make(map[Key]*Machine)}
}

// Step routes a row to the machine for key.
func (t *Tracker) Step(key Key, date time.Time, rec ou.Recommendation, out ou.Outcome) Marker {
	m, ok := t.machines[key]
	if !ok {
		m = NewMachine(t.cfg, key.System, key.Team)
		t.machines[key] = m
		t.order = append(t.order, key)
	}
	marker, ev := m.Step(date, rec, out)
	if ev != nil {
		t.events = append(t.events, *ev)
	}
	return marker
}

// Events returns the finished events in completion order.
func (t *Tracker) Events() []Event {
	return append([]Event(nil), t.events...)
}

// Open returns the unfinished windows in the order their keys were first
// stepped.
func (t *Tracker) Open() []OpenWindow {
	var open []OpenWindow
	for _, key := range t.order {
		if w := t.machines[key].Open(); w != nil {
			open = append(open, *w)
		}
	}
	return open
}
