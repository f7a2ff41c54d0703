package bls

import "errors"

// ErrNoEvaluatedPeriods is returned by BestFit when no grid point has been
// evaluated.
var ErrNoEvaluatedPeriods = errors.New("no evaluated periods")

// Periodogram holds the box search statistic for every grid period.
type Periodogram struct {
	Period      []float64 // Ascending grid periods
	Power       []float64 // Log-likelihood improvement of the best box, >= 0
	Depth       []float64 // Depth of the best box, 0 when no dip was found
	TransitTime []float64 // Mid-time of the first transit of the best box
	Evaluated   []bool    // False for periods skipped by an aborted search
	Duration    float64   // Box duration used for every period

	// Complete is true when every period was evaluated.
	Complete bool
}

func newPeriodogram(grid Grid, duration float64) *Periodogram {
	n := len(grid)
	return &Periodogram{
		Period:      append([]float64(nil), grid...),
		Power:       make([]float64, n),
		Depth:       make([]float64, n),
		TransitTime: make([]float64, n),
		Evaluated:   make([]bool, n),
		Duration:    duration,
	}
}

// Len returns the number of grid periods.
func (p *Periodogram) Len() int {
	return len(p.Period)
}

// EvaluatedCount returns the number of evaluated grid periods.
func (p *Periodogram) EvaluatedCount() int {
	var n int
	for _, ok := range p.Evaluated {
		if ok {
			n++
		}
	}
	return n
}

// BestFit is the grid point of maximum power.
type BestFit struct {
	Index       int
	Period      float64
	Power       float64
	Depth       float64
	TransitTime float64
	Duration    float64
}

// Best returns the evaluated grid point with maximum power. Ties resolve to
// the lowest grid index.
func (p *Periodogram) Best() (BestFit, error) {
	best := -1
	for i, ok := range p.Evaluated {
		if !ok {
			continue
		}
		if best < 0 || p.Power[i] > p.Power[best] {
			best = i
		}
	}
	if best < 0 {
		return BestFit{}, ErrNoEvaluatedPeriods
	}

	return BestFit{
		Index:       best,
		Period:      p.Period[best],
		Power:       p.Power[best],
		Depth:       p.Depth[best],
		TransitTime: p.TransitTime[best],
		Duration:    p.Duration,
	}, nil
}
