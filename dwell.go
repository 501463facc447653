package main

import (
	"time"
)

// DwellState tracks one kind's current unbroken run of classifier reports.
// Start is zero while no run is open. StartFixValid guards against runs
// opened before any location fix has been delivered.
type DwellState struct {
	Start         time.Time
	StartFix      LocationFix
	StartFixValid bool
	Active        bool
}

func (s *DwellState) resetRun() {
	s.Start = time.Time{}
	s.StartFix = LocationFix{}
	s.StartFixValid = false
}

// DwellTracker keeps per-kind dwell state for the whole catalog.
// It has no opinion about activation; it only answers how long each kind
// has been reported without interruption, and from where.
type DwellTracker struct {
	states map[Activity]*DwellState
}

func NewDwellTracker() *DwellTracker {
	t := &DwellTracker{states: make(map[Activity]*DwellState, len(Catalog))}
	for _, kind := range Catalog {
		t.states[kind] = &DwellState{}
	}
	return t
}

func (t *DwellTracker) State(kind Activity) *DwellState {
	return t.states[kind]
}

// Observe records one classifier report. The reported kind's run opens at the
// event time if it was closed; every other kind's run is broken. Repeated
// reports of the same kind never reset its run.
// Low-confidence events must be discarded before reaching this point.
func (t *DwellTracker) Observe(ev MotionEvent, at LocationFix, haveFix bool) {
	for _, kind := range Catalog {
		state := t.states[kind]
		if kind != ev.Activity {
			state.resetRun()
			continue
		}
		if state.Start.IsZero() {
			state.Start = ev.Time
			state.StartFix = at
			state.StartFixValid = haveFix
		}
	}
}

// ResetRuns breaks every open run without touching activation flags.
// Used when chronology breaks on the input stream.
func (t *DwellTracker) ResetRuns() {
	for _, state := range t.states {
		state.resetRun()
	}
}

// ActiveCount returns how many kinds are flagged active.
// Anything above one is an invariant violation.
func (t *DwellTracker) ActiveCount() int {
	n := 0
	for _, state := range t.states {
		if state.Active {
			n++
		}
	}
	return n
}
