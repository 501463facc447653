package main

import (
	"regexp"
	"time"
)

// Activity is a classified mode of movement as reported by a motion classifier.
type Activity int

const (
	TrackerStateUnknown Activity = iota
	TrackerStateStopped
	TrackerStateWalking
	TrackerStateRunning
	TrackerStateCycling
	TrackerStateVehicle
)

// Catalog is the fixed evaluation order for all activity kinds.
// The order is deterministic, not semantic; simultaneous promotion
// boundaries are broken by it.
var Catalog = []Activity{
	TrackerStateStopped,
	TrackerStateWalking,
	TrackerStateRunning,
	TrackerStateCycling,
	TrackerStateVehicle,
	TrackerStateUnknown,
}

var (
	activityStationary = regexp.MustCompile(`(?i)stationary|still|stop`)
	activityWalking    = regexp.MustCompile(`(?i)walk`)
	activityRunning    = regexp.MustCompile(`(?i)run`)
	activityCycling    = regexp.MustCompile(`(?i)cycle|bike|biking`)
	activityDriving    = regexp.MustCompile(`(?i)drive|driving|automotive|vehicle`)
)

func (a Activity) IsMoving() bool {
	return a > TrackerStateStopped
}

func (a Activity) IsKnown() bool {
	return a != TrackerStateUnknown
}

func (a Activity) String() string {
	switch a {
	case TrackerStateUnknown:
		return "Unknown"
	case TrackerStateStopped:
		return "Stationary"
	case TrackerStateWalking:
		return "Walking"
	case TrackerStateRunning:
		return "Running"
	case TrackerStateCycling:
		return "Bike"
	case TrackerStateVehicle:
		return "Automotive"
	}
	return "Unknown"
}

func ActivityFromReport(report interface{}) Activity {
	if report == nil {
		return TrackerStateUnknown
	}
	reportStr, ok := report.(string)
	if !ok {
		return TrackerStateUnknown
	}
	switch {
	case activityStationary.MatchString(reportStr):
		return TrackerStateStopped
	case activityWalking.MatchString(reportStr):
		return TrackerStateWalking
	case activityRunning.MatchString(reportStr):
		return TrackerStateRunning
	case activityCycling.MatchString(reportStr):
		return TrackerStateCycling
	case activityDriving.MatchString(reportStr):
		return TrackerStateVehicle
	}
	return TrackerStateUnknown
}

// Profile is the static dwell/displacement threshold pair for one kind.
// MinDisplacement is compared against the haversine distance between the
// dwell-start location and the current fix, padded by the fix's accuracy.
type Profile struct {
	MinDwell        time.Duration
	MinDisplacement float64 // meters
}

var profiles = map[Activity]Profile{
	TrackerStateStopped: {MinDwell: 30 * time.Second, MinDisplacement: 0},
	TrackerStateWalking: {MinDwell: 30 * time.Second, MinDisplacement: 30},
	TrackerStateRunning: {MinDwell: 30 * time.Second, MinDisplacement: 60},
	TrackerStateCycling: {MinDwell: 45 * time.Second, MinDisplacement: 100},
	TrackerStateVehicle: {MinDwell: 60 * time.Second, MinDisplacement: 250},
	TrackerStateUnknown: {MinDwell: 60 * time.Second, MinDisplacement: 50},
}

// ProfileFor is total over the catalog.
func ProfileFor(a Activity) Profile {
	return profiles[a]
}

// Confidence is the classifier's reported confidence for a motion event.
// Low-confidence reports are discarded before they reach the dwell tracker.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

var (
	confidenceLow  = regexp.MustCompile(`(?i)^low`)
	confidenceHigh = regexp.MustCompile(`(?i)^high`)
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceHigh:
		return "high"
	}
	return "medium"
}

func ConfidenceFromReport(report interface{}) Confidence {
	if report == nil {
		return ConfidenceMedium
	}
	reportStr, ok := report.(string)
	if !ok {
		return ConfidenceMedium
	}
	switch {
	case confidenceLow.MatchString(reportStr):
		return ConfidenceLow
	case confidenceHigh.MatchString(reportStr):
		return ConfidenceHigh
	}
	return ConfidenceMedium
}
