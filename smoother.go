package main

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/rosshemsley/kalman"
	"github.com/rosshemsley/kalman/models"
	"gonum.org/v1/gonum/mat"
)

// FixSmoother runs location fixes through a constant-velocity Kalman filter.
// It is an optional pre-filter for the fix stream; the engine's rules do not
// depend on it.
type FixSmoother struct {
	model  *models.ConstantVelocityModel
	filter *kalman.KalmanFilter
	last   time.Time
}

func NewFixSmoother() *FixSmoother {
	return &FixSmoother{}
}

// Smooth returns the filtered estimate for the fix. The first fix seeds the
// model and passes through unchanged, as does any fix the filter rejects.
func (s *FixSmoother) Smooth(fix LocationFix) (LocationFix, error) {
	// Accuracy is meters; the model works in degrees.
	variance := math.Max(fix.Accuracy, 1) * earthCircumferenceDegreesPerMeter
	vec := mat.NewVecDense(2, []float64{fix.Point.Lon(), fix.Point.Lat()})

	if s.model == nil {
		s.model = models.NewConstantVelocityModel(fix.Time, vec, models.ConstantVelocityModelConfig{
			InitialVariance: variance,
			ProcessVariance: variance / 2,
		})
		s.filter = kalman.NewKalmanFilter(s.model)
		s.last = fix.Time
		return fix, nil
	}
	if fix.Time.Before(s.last) {
		return fix, fmt.Errorf("fix time is before last observation: last=%s current=%s",
			s.last.Format(time.RFC3339), fix.Time.Format(time.RFC3339))
	}
	if err := s.filter.Update(fix.Time, s.model.NewPositionMeasurement(vec, variance)); err != nil {
		return fix, err
	}
	s.last = fix.Time

	pos := s.model.Position(s.filter.State())
	out := fix
	out.Point = orb.Point{pos.AtVec(0), pos.AtVec(1)}
	return out, nil
}
