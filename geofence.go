package main

import (
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// GeofenceRadiusMeters is the fixed watch-region radius. It is deliberately
// independent of the per-kind displacement thresholds.
const GeofenceRadiusMeters = 30.0

// LocationProvider is the location collaborator: continuous fix delivery
// plus single-region monitoring with entry/exit callbacks routed back to
// the engine's ingress functions.
type LocationProvider interface {
	StartUpdates()
	StopUpdates()
	StartMonitoring(center orb.Point, radius float64)
	StopMonitoring()
}

// GeofenceController trades continuous location sampling for a single
// circular watch region around the last known location while the user is
// stationary. Arm and Disarm are idempotent.
type GeofenceController struct {
	provider LocationProvider
	sink     EventSink
	log      *zap.SugaredLogger

	armed  bool
	center orb.Point
}

func NewGeofenceController(provider LocationProvider, sink EventSink, log *zap.SugaredLogger) *GeofenceController {
	return &GeofenceController{
		provider: provider,
		sink:     sink,
		log:      log,
	}
}

func (g *GeofenceController) Armed() bool {
	return g.armed
}

func (g *GeofenceController) Center() orb.Point {
	return g.center
}

// Arm stops continuous updates and begins monitoring a region centered on
// the given fix. A no-op while already armed.
func (g *GeofenceController) Arm(at LocationFix) {
	if g.armed {
		return
	}
	g.provider.StopUpdates()
	g.provider.StartMonitoring(at.Point, GeofenceRadiusMeters)
	g.armed = true
	g.center = at.Point
	g.sink.Push(newEvent(EventGeofenceArmed, at.Time, "geofence armed"))
}

// Disarm stops region monitoring and resumes continuous updates.
// A no-op while not armed.
func (g *GeofenceController) Disarm(t time.Time) {
	if !g.armed {
		return
	}
	g.provider.StopMonitoring()
	g.provider.StartUpdates()
	g.armed = false
	g.sink.Push(newEvent(EventGeofenceDisarmed, t, "geofence disarmed"))
}

// OnEntry handles a region-entry notification. The region is created
// centered on the current position, so entries are anomalies; they are
// logged and otherwise ignored.
func (g *GeofenceController) OnEntry(t time.Time) {
	g.log.Warnw("unexpected geofence entry", "time", t.Format(time.RFC3339), "armed", g.armed)
}
