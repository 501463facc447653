package main

import (
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// MotionEvent is one classified report from the motion classifier.
type MotionEvent struct {
	Activity   Activity
	Confidence Confidence
	Time       time.Time
}

// LocationFix is one position report from the location provider.
type LocationFix struct {
	Point    orb.Point
	Accuracy float64 // horizontal, meters
	Time     time.Time
}

// MotionClassifier is the queryable side of the motion collaborator.
// Latest returns the most recent event in [since, until]; it is used to
// re-anchor activity state after a geofence exit, when live delivery was
// suspended and the classifier queued events instead.
type MotionClassifier interface {
	Latest(since, until time.Time) (MotionEvent, bool)
}

// EngineState is the single owned mutable state of the engine.
type EngineState struct {
	Active    Activity
	HasActive bool

	// ActiveAnchor is the dwell-start location of the active kind, captured
	// at promotion. It anchors the trip displacement test.
	ActiveAnchor      LocationFix
	ActiveAnchorValid bool

	TripInProgress bool

	Current LocationFix
	HasFix  bool

	LastEventTime time.Time
}

// Engine is the activity-dwell / activation / trip-boundary state machine.
// It is single-owner: all ingress functions must be called from one
// goroutine, each call running to completion before the next.
type Engine struct {
	log        *zap.SugaredLogger
	sink       EventSink
	classifier MotionClassifier // may be nil; disables backlog recovery

	dwell    *DwellTracker
	fence    *GeofenceController
	recorder *TripRecorder
	stops    *StopConsolidator

	// OnFeature, when set, receives recorded trip paths and consolidated
	// stop points as they complete.
	OnFeature func(*geojson.Feature)

	state EngineState
}

func NewEngine(provider LocationProvider, classifier MotionClassifier, sink EventSink, log *zap.SugaredLogger) *Engine {
	e := &Engine{
		log:        log,
		sink:       sink,
		classifier: classifier,
		dwell:      NewDwellTracker(),
		recorder:   NewTripRecorder(),
		stops:      NewStopConsolidator(),
	}
	e.fence = NewGeofenceController(provider, sink, log)
	return e
}

// State returns a copy of the engine state.
func (e *Engine) State() EngineState {
	return e.state
}

func (e *Engine) GeofenceArmed() bool {
	return e.fence.Armed()
}

// OnMotionEvent is the ingress function for classified motion reports.
func (e *Engine) OnMotionEvent(ev MotionEvent) {
	if ev.Confidence == ConfidenceLow {
		return
	}
	if !e.state.LastEventTime.IsZero() && ev.Time.Before(e.state.LastEventTime) {
		e.log.Warnw("motion event not chronological, resetting dwell runs",
			"eventTime", ev.Time.Format(time.RFC3339),
			"lastEventTime", e.state.LastEventTime.Format(time.RFC3339))
		e.dwell.ResetRuns()
		e.state.LastEventTime = ev.Time
		return
	}

	e.dwell.Observe(ev, e.state.Current, e.state.HasFix)
	e.state.LastEventTime = ev.Time

	e.reevaluateActivation()
	e.reevaluateTrip(ev.Time)
}

// OnLocationFix is the ingress function for position reports.
func (e *Engine) OnLocationFix(fix LocationFix) {
	e.state.Current = fix
	e.state.HasFix = true

	if e.fence.Armed() {
		// Continuous updates are off; anything delivered now is a
		// region-local sample worth folding into the stop point.
		e.stops.Merge(fix)
	}
	if e.recorder.Recording() {
		e.recorder.Extend(fix)
	}
	e.reevaluateTrip(fix.Time)
}

// OnRegionExit is the ingress function for the watch-region exit callback.
// The classifier backlog queued during the armed interval is flushed before
// continuous sampling resumes.
func (e *Engine) OnRegionExit(t time.Time) {
	if !e.fence.Armed() {
		e.log.Warnw("region exit while not armed", "time", t.Format(time.RFC3339))
		return
	}
	if e.classifier != nil {
		if ev, ok := e.classifier.Latest(e.state.LastEventTime, t); ok {
			e.OnMotionEvent(ev)
		}
	}
	e.disarm(t)
}

// OnRegionEntry is the ingress function for the watch-region entry callback.
func (e *Engine) OnRegionEntry(t time.Time) {
	e.fence.OnEntry(t)
}

// reevaluateActivation promotes at most one kind whose unbroken run has
// outlasted its minimum dwell. Evaluation follows catalog order.
func (e *Engine) reevaluateActivation() {
	for _, kind := range Catalog {
		st := e.dwell.State(kind)
		if st.Start.IsZero() {
			continue
		}
		if e.state.HasActive && e.state.Active == kind {
			continue
		}
		if e.state.LastEventTime.Sub(st.Start) > ProfileFor(kind).MinDwell {
			e.promote(kind, st)
		}
	}
	e.assertSingleActive()
}

func (e *Engine) promote(kind Activity, st *DwellState) {
	t := e.state.LastEventTime

	for _, other := range Catalog {
		e.dwell.State(other).Active = other == kind
	}
	e.state.Active = kind
	e.state.HasActive = true
	e.state.ActiveAnchor = st.StartFix
	e.state.ActiveAnchorValid = st.StartFixValid

	e.sink.Push(activityChangedEvent(kind, t))

	// A mode change alone ends the prior trip; whether a new trip starts
	// is decided by the next trip re-evaluation.
	if e.state.TripInProgress {
		e.endTrip(t)
	}

	// All dwell clocks restart after a promotion.
	e.dwell.ResetRuns()

	e.reevaluateGeofence(t)
}

// reevaluateTrip is invoked after every motion event and every location fix.
func (e *Engine) reevaluateTrip(t time.Time) {
	if !e.state.HasActive {
		return
	}
	if e.state.Active == TrackerStateStopped {
		if e.state.TripInProgress {
			e.endTrip(t)
		}
		return
	}
	if e.state.TripInProgress {
		return
	}
	if !e.state.HasFix || !e.state.ActiveAnchorValid {
		return
	}
	dist := geo.Distance(e.state.ActiveAnchor.Point, e.state.Current.Point)
	// The accuracy term guards against false positives from GPS noise at
	// low precision. The boundary is strict: exactly at threshold+accuracy
	// does not start a trip.
	if dist > ProfileFor(e.state.Active).MinDisplacement+e.state.Current.Accuracy {
		e.state.TripInProgress = true
		e.sink.Push(newEvent(EventTripStarted, t, "trip started"))
		e.recorder.Begin(e.state.Active, e.state.Current)
	}
}

func (e *Engine) endTrip(t time.Time) {
	e.state.TripInProgress = false
	e.sink.Push(newEvent(EventTripEnded, t, "trip ended"))
	if f := e.recorder.Finish(t); f != nil && e.OnFeature != nil {
		e.OnFeature(f)
	}
}

// reevaluateGeofence arms the watch region when Stopped is the active kind
// and releases it otherwise. Disarm on region exit is handled separately.
func (e *Engine) reevaluateGeofence(t time.Time) {
	if e.state.HasActive && e.state.Active == TrackerStateStopped {
		if !e.state.HasFix {
			e.log.Debugw("stationary without a fix, geofence not armed")
			return
		}
		if !e.fence.Armed() {
			e.stops.Reset()
			e.stops.Merge(e.state.Current)
		}
		e.fence.Arm(LocationFix{Point: e.state.Current.Point, Accuracy: e.state.Current.Accuracy, Time: t})
		return
	}
	e.disarm(t)
}

func (e *Engine) disarm(t time.Time) {
	if !e.fence.Armed() {
		return
	}
	e.fence.Disarm(t)
	if f := e.stops.Snapshot(t); f != nil && e.OnFeature != nil {
		e.OnFeature(f)
	}
}

func (e *Engine) assertSingleActive() {
	if n := e.dwell.ActiveCount(); n > 1 {
		e.log.Errorw("invariant violation: multiple active kinds", "state", spew.Sdump(e.state))
		panic(fmt.Sprintf("tripwire: %d activity kinds active at once", n))
	}
}
