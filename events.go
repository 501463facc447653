package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// EventKind enumerates the domain events the engine produces.
type EventKind int

const (
	EventActivityChanged EventKind = iota
	EventTripStarted
	EventTripEnded
	EventGeofenceArmed
	EventGeofenceDisarmed
)

func (k EventKind) String() string {
	switch k {
	case EventActivityChanged:
		return "activity-changed"
	case EventTripStarted:
		return "trip-started"
	case EventTripEnded:
		return "trip-ended"
	case EventGeofenceArmed:
		return "geofence-armed"
	case EventGeofenceDisarmed:
		return "geofence-disarmed"
	}
	return "unknown"
}

// Event is one ordered domain event. Activity is meaningful only for
// activity-changed events.
type Event struct {
	Kind     EventKind `json:"-"`
	Name     string    `json:"event"`
	Activity Activity  `json:"-"`
	Label    string    `json:"label"`
	Time     time.Time `json:"time"`
}

func newEvent(kind EventKind, t time.Time, label string) Event {
	return Event{Kind: kind, Name: kind.String(), Label: label, Time: t}
}

func activityChangedEvent(a Activity, t time.Time) Event {
	ev := newEvent(EventActivityChanged, t, fmt.Sprintf("activity changed: %s", a))
	ev.Activity = a
	return ev
}

// EventSink receives the engine's ordered domain events.
// Implementations must not retain the event past the call.
type EventSink interface {
	Push(Event)
}

// LogSink logs events through a zap sugared logger.
type LogSink struct {
	log *zap.SugaredLogger
}

func NewLogSink(log *zap.SugaredLogger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Push(ev Event) {
	s.log.Infow(ev.Label, "event", ev.Name, "time", ev.Time.Format(time.RFC3339))
}

// WriterSink writes events as newline-delimited JSON.
type WriterSink struct {
	enc *json.Encoder
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) Push(ev Event) {
	// Encode errors are a broken pipe downstream; nothing to do with them here.
	_ = s.enc.Encode(ev)
}

// MultiSink fans events out to each sink in order.
type MultiSink []EventSink

func (s MultiSink) Push(ev Event) {
	for _, sink := range s {
		sink.Push(ev)
	}
}
