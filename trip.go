package main

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

const (
	earthRadius                       = 6378137.0 // meters
	earthCircumference                = math.Pi * earthRadius * 2
	earthCircumferenceDegreesPerMeter = 360 / earthCircumference
)

// defaultSimplifyEpsilon is the Douglas-Peucker threshold (degrees) applied
// to a recorded trip path when the trip ends.
const defaultSimplifyEpsilon = 0.00008

// TripRecorder accumulates the location fixes delivered during a trip into
// a linestring feature. It is fed by the engine: Begin on trip start, Extend
// for every fix while the trip is in progress, Finish on trip end.
type TripRecorder struct {
	SimplifyEpsilon float64

	activity  Activity
	fixes     []LocationFix
	recording bool
}

func NewTripRecorder() *TripRecorder {
	return &TripRecorder{SimplifyEpsilon: defaultSimplifyEpsilon}
}

func (r *TripRecorder) Recording() bool {
	return r.recording
}

func (r *TripRecorder) Begin(activity Activity, fix LocationFix) {
	r.activity = activity
	r.fixes = []LocationFix{fix}
	r.recording = true
}

func (r *TripRecorder) Extend(fix LocationFix) {
	if !r.recording {
		return
	}
	r.fixes = append(r.fixes, fix)
}

// Finish closes the recording and returns the simplified trip path, or nil
// if fewer than two fixes were captured.
func (r *TripRecorder) Finish(end time.Time) *geojson.Feature {
	fixes := r.fixes
	activity := r.activity
	r.fixes = nil
	r.recording = false
	r.activity = TrackerStateUnknown

	if len(fixes) < 2 {
		return nil
	}

	ls := make(orb.LineString, 0, len(fixes))
	accuracies := make([]float64, 0, len(fixes))
	for _, fix := range fixes {
		ls = append(ls, fix.Point)
		accuracies = append(accuracies, fix.Accuracy)
	}

	f := geojson.NewFeature(simplify.DouglasPeucker(r.SimplifyEpsilon).Simplify(ls))
	f.Properties["Activity"] = activity.String()
	f.Properties["StartTime"] = fixes[0].Time.Format(time.RFC3339)
	f.Properties["EndTime"] = end.Format(time.RFC3339)
	f.Properties["Duration"] = end.Sub(fixes[0].Time).Round(time.Second).Seconds()
	f.Properties["NumberOfPoints"] = len(fixes)
	f.Properties["DistanceTraversed"] = traversedDistance(fixes)
	f.Properties["DistanceAbsolute"] = absoluteDistance(fixes)

	meanAccuracy, _ := stats.Mean(stats.Float64Data(accuracies))
	f.Properties["AverageAccuracy"] = meanAccuracy

	if speeds := calculatedSpeeds(fixes); len(speeds) > 0 {
		data := stats.Float64Data(speeds)
		min, _ := data.Min()
		max, _ := data.Max()
		mean, _ := data.Mean()
		f.Properties["SpeedStats"] = map[string]float64{
			"Min":  min,
			"Max":  max,
			"Mean": mean,
		}
	}
	return f
}
