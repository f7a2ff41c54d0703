// Package fold phase-folds a flattened light curve on a trial period and
// reduces the folded samples to a fixed number of phase bins.
package fold

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

const DefaultBins = 300

var (
	// ErrInvalidPeriod is returned for a non-positive or non-finite period.
	ErrInvalidPeriod = errors.New("invalid fold period")

	// ErrInvalidBins is returned for a non-positive bin count.
	ErrInvalidBins = errors.New("invalid number of phase bins")
)

// PhaseFoldedSeries holds samples ordered by orbital phase in [0, 1).
type PhaseFoldedSeries struct {
	Period float64
	Phase  []float64
	Flux   []float64
}

// Len returns the number of folded samples.
func (s *PhaseFoldedSeries) Len() int {
	return len(s.Phase)
}

// Fold maps every finite sample of series to its phase mod(t, period)/period
// and sorts the result by phase. Samples sharing a phase keep their input
// order.
func Fold(series *lightcurve.FlattenedSeries, period float64) (*PhaseFoldedSeries, error) {
	if !(period > 0) || math.IsInf(period, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}

	type point struct{ phase, flux float64 }

	points := make([]point, 0, series.Len())
	for i, f := range series.Flux {
		t := series.Time[i]
		if math.IsNaN(f) || math.IsNaN(t) {
			continue
		}
		points = append(points, point{phase: Phase(t, period), flux: f})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].phase < points[j].phase
	})

	folded := PhaseFoldedSeries{
		Period: period,
		Phase:  make([]float64, len(points)),
		Flux:   make([]float64, len(points)),
	}
	for i, p := range points {
		folded.Phase[i] = p.phase
		folded.Flux[i] = p.flux
	}
	return &folded, nil
}

// Phase returns the phase of t in [0, 1). Multiples of period map to 0.
func Phase(t, period float64) float64 {
	phase := math.Mod(t, period) / period
	if phase < 0 {
		phase++
	}
	if phase >= 1 {
		// rounding of tiny negative remainders
		phase = 0
	}
	return phase
}
