/*
Tripwire infers sustained activities and trip boundaries from a stream of
classified motion reports and location fixes.

The run command reads geojson point features as newline-delimited JSON on
stdin. Every feature is a location fix; features carrying an Activity
property double as classifier reports. Domain events and recorded
trip/stop features are written as newline-delimited JSON on stdout.

Use:

	zcat ~/tdata/edge.json.gz | tripwire run
*/

package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

var (
	flagDebug             = flag.Bool("debug", false, "development logging")
	flagSmooth            = flag.Bool("smooth", false, "kalman-filter the fix stream before the engine")
	flagSimplifyThreshold = flag.Float64("threshold", defaultSimplifyEpsilon, "Douglas-Peucker epsilon for recorded trip paths")
)

func newLogger() *zap.SugaredLogger {
	var logger *zap.Logger
	var err error
	if *flagDebug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

// streamProvider adapts the stdin feature stream to the LocationProvider
// contract. Continuous updates are a delivery gate; region monitoring is
// simulated by distance-checking each incoming fix against the region.
type streamProvider struct {
	updates    bool
	monitoring bool
	center     orb.Point
	radius     float64
}

func (p *streamProvider) StartUpdates() { p.updates = true }
func (p *streamProvider) StopUpdates()  { p.updates = false }

func (p *streamProvider) StartMonitoring(center orb.Point, radius float64) {
	p.monitoring = true
	p.center = center
	p.radius = radius
}

func (p *streamProvider) StopMonitoring() { p.monitoring = false }

// exited reports whether a fix falls outside the monitored region.
func (p *streamProvider) exited(pt orb.Point) bool {
	return p.monitoring && geo.Distance(p.center, pt) > p.radius
}

// backlogClassifier queues motion events while the geofence is armed and
// serves the post-exit recovery query.
type backlogClassifier struct {
	events []MotionEvent
}

func (c *backlogClassifier) Queue(ev MotionEvent) {
	c.events = append(c.events, ev)
}

// Latest returns the most recent queued event within [since, until] and
// drops everything up to and including it.
func (c *backlogClassifier) Latest(since, until time.Time) (MotionEvent, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		ev := c.events[i]
		if ev.Time.After(until) {
			continue
		}
		if ev.Time.Before(since) {
			break
		}
		c.events = c.events[i+1:]
		return ev, true
	}
	c.events = c.events[:0]
	return MotionEvent{}, false
}

func cmdRun() {
	log := newLogger()
	defer log.Sync()

	bwriter := bufio.NewWriter(os.Stdout)
	defer bwriter.Flush()

	provider := &streamProvider{}
	provider.StartUpdates()
	classifier := &backlogClassifier{}
	sink := MultiSink{NewLogSink(log), NewWriterSink(bwriter)}

	engine := NewEngine(provider, classifier, sink, log)
	engine.recorder.SimplifyEpsilon = *flagSimplifyThreshold
	engine.OnFeature = func(f *geojson.Feature) {
		j, err := f.MarshalJSON()
		if err != nil {
			log.Errorw("marshal feature", "error", err)
			return
		}
		j = append(j, '\n')
		if _, err := bwriter.Write(j); err != nil {
			log.Fatalw("write feature", "error", err)
		}
	}

	smoother := NewFixSmoother()

	featureCh, errCh, closeCh := readStreamWithFeatureCallback(os.Stdin, func(f *geojson.Feature) (*geojson.Feature, error) {
		if err := validatePointFeature(f); err != nil {
			return nil, err
		}
		return f, nil
	})

loop:
	for {
		select {
		case f := <-featureCh:
			t := &TrackGeoJSON{f}
			fix := t.Fix()
			if *flagSmooth {
				smoothed, err := smoother.Smooth(fix)
				if err != nil {
					log.Warnw("smoother rejected fix", "error", err)
				} else {
					fix = smoothed
				}
			}

			if provider.exited(fix.Point) {
				engine.OnRegionExit(fix.Time)
			}
			if provider.updates {
				engine.OnLocationFix(fix)
			}
			if t.HasMotionReport() {
				ev := t.MotionEvent()
				if engine.GeofenceArmed() {
					classifier.Queue(ev)
				} else {
					engine.OnMotionEvent(ev)
				}
			}
		case err := <-errCh:
			log.Warnw("bad input feature", "error", err)
		case <-closeCh:
			break loop
		}
	}
}

func cmdSmooth() {
	log := newLogger()
	defer log.Sync()

	bwriter := bufio.NewWriter(os.Stdout)
	defer bwriter.Flush()

	smoother := NewFixSmoother()
	featureCh, errCh, closeCh := readStreamWithFeatureCallback(os.Stdin, func(f *geojson.Feature) (*geojson.Feature, error) {
		if err := validatePointFeature(f); err != nil {
			return nil, err
		}
		t := &TrackGeoJSON{f}
		smoothed, err := smoother.Smooth(t.Fix())
		if err != nil {
			return nil, err
		}
		f.Geometry = smoothed.Point
		return f, nil
	})

loop:
	for {
		select {
		case f := <-featureCh:
			j, err := f.MarshalJSON()
			if err != nil {
				log.Fatalw("marshal feature", "error", err)
			}
			j = append(j, '\n')
			if _, err := bwriter.Write(j); err != nil {
				log.Fatalw("write feature", "error", err)
			}
		case err := <-errCh:
			log.Warnw("bad input feature", "error", err)
		case <-closeCh:
			break loop
		}
	}
}

func cmdValidate() {
	log := newLogger()
	defer log.Sync()

	bwriter := bufio.NewWriter(os.Stdout)
	defer bwriter.Flush()

	featureCh, errCh, closeCh := readStreamWithFeatureCallback(os.Stdin, func(f *geojson.Feature) (*geojson.Feature, error) {
		if err := validatePointFeature(f); err != nil {
			return nil, err
		}
		return f, nil
	})

loop:
	for {
		select {
		case f := <-featureCh:
			j, err := f.MarshalJSON()
			if err != nil {
				log.Fatalw("marshal feature", "error", err)
			}
			j = append(j, '\n')
			if _, err := bwriter.Write(j); err != nil {
				log.Fatalw("write feature", "error", err)
			}
		case err := <-errCh:
			log.Warnw("bad input feature", "error", err)
		case <-closeCh:
			break loop
		}
	}
}

func main() {
	flag.Parse()
	switch flag.Arg(0) {
	case "run":
		cmdRun()
	case "smooth":
		cmdSmooth()
	case "validate":
		cmdValidate()
	default:
		log := newLogger()
		log.Fatalf("unknown command: %s", flag.Arg(0))
	}
}

func readStreamWithFeatureCallback(reader io.Reader, callback func(*geojson.Feature) (*geojson.Feature, error)) (chan *geojson.Feature, chan error, chan struct{}) {
	featureChan := make(chan *geojson.Feature)
	errChan := make(chan error)
	closeCh := make(chan struct{}, 1)

	breader := bufio.NewReader(reader)

	go func() {
		for {
			read, err := breader.ReadBytes('\n')
			if err != nil {
				if errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
					closeCh <- struct{}{}
					return
				}
				errChan <- err
			}
			pointFeature, err := geojson.UnmarshalFeature(read)
			if err != nil {
				errChan <- err
			}
			if pointFeature == nil {
				continue
			}

			if callback != nil {
				out, err := callback(pointFeature)
				if err != nil {
					errChan <- err
					continue
				}
				featureChan <- out
			} else {
				featureChan <- pointFeature
			}
		}
	}()

	return featureChan, errChan, closeCh
}
