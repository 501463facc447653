package main

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopConsolidatorSnapshot(t *testing.T) {
	sc := NewStopConsolidator()
	sc.Reset()
	sc.Merge(fixAt(0, 0, 5))
	sc.Merge(fixAt(10, 4, 5))
	sc.Merge(fixAt(20, 8, 5))

	f := sc.Snapshot(testEpoch.Add(30 * time.Second))
	require.NotNil(t, f)

	centroid := f.Geometry.(orb.Point)
	assert.InDelta(t, 4, geo.Distance(fixAt(0, 0, 0).Point, centroid), 0.5)

	assert.Equal(t, 3, f.Properties["Count"])
	assert.Equal(t, 30.0, f.Properties["Duration"])

	p50 := f.Properties["P50Dist"].(float64)
	p99 := f.Properties["P99Dist"].(float64)
	maxDist := f.Properties["MaxDist"].(float64)
	assert.LessOrEqual(t, p50, p99)
	assert.LessOrEqual(t, p99, maxDist)
	assert.InDelta(t, 4, maxDist, 0.5)
}

func TestStopConsolidatorEmpty(t *testing.T) {
	sc := NewStopConsolidator()
	assert.Nil(t, sc.Snapshot(testEpoch))
}

func TestStopConsolidatorSingleFix(t *testing.T) {
	sc := NewStopConsolidator()
	sc.Merge(fixAt(0, 10, 5))
	f := sc.Snapshot(testEpoch.Add(5 * time.Second))
	require.NotNil(t, f)
	assert.Equal(t, fixAt(0, 10, 5).Point, f.Geometry.(orb.Point))
	assert.Equal(t, 1, f.Properties["Count"])
}

func TestStopConsolidatorIDsIncrement(t *testing.T) {
	sc := NewStopConsolidator()
	sc.Merge(fixAt(0, 0, 5))
	first := sc.Snapshot(testEpoch)
	sc.Reset()
	sc.Merge(fixAt(60, 0, 5))
	second := sc.Snapshot(testEpoch.Add(time.Minute))
	assert.NotEqual(t, first.Properties["ID"], second.Properties["ID"])
}
