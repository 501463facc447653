package main

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// StopConsolidator synthesizes a single stop point from the fixes observed
// while the geofence is armed. The engine resets it on arm, merges any fixes
// delivered during the armed interval, and snapshots it on disarm.
type StopConsolidator struct {
	fixes []LocationFix

	// stopN differentiates successive synthesized stop points by feature ID.
	stopN int
}

func NewStopConsolidator() *StopConsolidator {
	return &StopConsolidator{}
}

func (sc *StopConsolidator) Reset() {
	sc.fixes = nil
}

func (sc *StopConsolidator) Merge(fix LocationFix) {
	sc.fixes = append(sc.fixes, fix)
}

// Snapshot returns the consolidated stop point, or nil if no fixes were
// merged during the armed interval. The point is the centroid of the merged
// fixes; the distance percentiles indicate how tightly they cluster.
func (sc *StopConsolidator) Snapshot(end time.Time) *geojson.Feature {
	if len(sc.fixes) == 0 {
		return nil
	}
	sc.stopN++

	points := make([]orb.Point, 0, len(sc.fixes))
	for _, fix := range sc.fixes {
		points = append(points, fix.Point)
	}
	centroid := points[0]
	if len(points) > 1 {
		centroid, _ = planar.CentroidArea(orb.MultiPoint(points))
	}

	f := geojson.NewFeature(centroid)
	f.ID = sc.stopN
	f.Properties["ID"] = sc.stopN
	f.Properties["StartTime"] = sc.fixes[0].Time.Format(time.RFC3339)
	f.Properties["Time"] = end.Format(time.RFC3339)
	f.Properties["Duration"] = end.Sub(sc.fixes[0].Time).Round(time.Second).Seconds()
	f.Properties["Count"] = len(sc.fixes)

	distances := make([]float64, 0, len(points))
	maxDist := 0.0
	for _, pt := range points {
		d := geo.Distance(centroid, pt)
		distances = append(distances, d)
		if d > maxDist {
			maxDist = d
		}
	}
	distP50, _ := stats.Percentile(distances, 50)
	distP99, _ := stats.Percentile(distances, 99)
	f.Properties["MaxDist"] = maxDist
	f.Properties["P50Dist"] = distP50
	f.Properties["P99Dist"] = distP99
	return f
}
