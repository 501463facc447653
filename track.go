package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// TrackGeoJSON wraps a geojson point feature as delivered on the input
// stream. Each feature is a location fix; features carrying an Activity
// property double as classified motion reports.
type TrackGeoJSON struct {
	*geojson.Feature
}

func (f *TrackGeoJSON) ToFeature() *geojson.Feature {
	return f.Feature
}

// MarshalJSON implements the json.Marshaler interface.
func (f *TrackGeoJSON) MarshalJSON() ([]byte, error) {
	return f.Feature.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *TrackGeoJSON) UnmarshalJSON(data []byte) error {
	return f.Feature.UnmarshalJSON(data)
}

func (f *TrackGeoJSON) MustGetActivity() Activity {
	return ActivityFromReport(f.Feature.Properties["Activity"])
}

func (f *TrackGeoJSON) MustGetConfidence() Confidence {
	return ConfidenceFromReport(f.Feature.Properties["Confidence"])
}

func (f *TrackGeoJSON) MustGetAccuracy() float64 {
	return f.Feature.Properties.MustFloat64("Accuracy", 0)
}

func (f *TrackGeoJSON) MustGetTime() time.Time {
	t := f.Feature.Properties.MustString("Time")
	out, err := time.Parse(time.RFC3339, t)
	if err != nil {
		panic(err)
	}
	return out
}

func (f *TrackGeoJSON) After(t time.Time) bool {
	return f.MustGetTime().After(t)
}

// HasMotionReport reports whether the feature carries a classifier report.
func (f *TrackGeoJSON) HasMotionReport() bool {
	v, ok := f.Feature.Properties["Activity"]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s != ""
}

// Fix converts the feature to the engine's location-fix input.
func (f *TrackGeoJSON) Fix() LocationFix {
	return LocationFix{
		Point:    f.Point(),
		Accuracy: f.MustGetAccuracy(),
		Time:     f.MustGetTime(),
	}
}

// MotionEvent converts the feature to the engine's motion-event input.
// Callers should gate on HasMotionReport first.
func (f *TrackGeoJSON) MotionEvent() MotionEvent {
	return MotionEvent{
		Activity:   f.MustGetActivity(),
		Confidence: f.MustGetConfidence(),
		Time:       f.MustGetTime(),
	}
}

var errCoordinateOutOfRange = errors.New("coordinate out of range")

func validatePointFeature(f *geojson.Feature) error {
	if pt, ok := f.Geometry.(orb.Point); !ok {
		return errors.New("not a point")
	} else if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lon() == 0 {
		return fmt.Errorf("%w: longitude out of range: %f", errCoordinateOutOfRange, pt.Lon())
	} else if pt.Lat() < -90 || pt.Lat() > 90 || pt.Lat() == 0 {
		return fmt.Errorf("%w: latitude out of range: %f", errCoordinateOutOfRange, pt.Lat())
	}

	if _, ok := f.Properties["Time"]; !ok {
		return errors.New("missing time")
	}
	t := (&TrackGeoJSON{f}).MustGetTime()
	if t.IsZero() {
		return errors.New("invalid time")
	}
	if _, ok := f.Properties["Accuracy"]; !ok {
		return errors.New("missing accuracy")
	}
	if (&TrackGeoJSON{f}).MustGetAccuracy() < 0 {
		return errors.New("negative accuracy")
	}
	return nil
}

func timespanOf(fixes []LocationFix) time.Duration {
	if len(fixes) < 2 {
		return 0
	}
	return fixes[len(fixes)-1].Time.Sub(fixes[0].Time)
}

func traversedDistance(fixes []LocationFix) float64 {
	sum := 0.0
	for i := 1; i < len(fixes); i++ {
		sum += geo.Distance(fixes[i-1].Point, fixes[i].Point)
	}
	return sum
}

func absoluteDistance(fixes []LocationFix) float64 {
	if len(fixes) < 2 {
		return 0
	}
	return geo.Distance(fixes[0].Point, fixes[len(fixes)-1].Point)
}

// calculatedSpeeds returns the leg speeds in meters per second.
// Zero-duration legs are skipped.
func calculatedSpeeds(fixes []LocationFix) []float64 {
	out := []float64{}
	for i := 1; i < len(fixes); i++ {
		dur := fixes[i].Time.Sub(fixes[i-1].Time).Seconds()
		if dur <= 0 {
			continue
		}
		out = append(out, geo.Distance(fixes[i-1].Point, fixes[i].Point)/dur)
	}
	return out
}
