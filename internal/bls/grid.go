package bls

import (
	"errors"
	"fmt"
)

const (
	DefaultPeriodMin = 0.25
	DefaultPeriodMax = 30.0
	DefaultGridSize  = 1000
)

// ErrInvalidGrid is returned for an unusable period grid.
var ErrInvalidGrid = errors.New("invalid period grid")

// Grid is an ascending sequence of candidate periods.
type Grid []float64

// LinearGrid returns n periods evenly spaced over [minPeriod, maxPeriod],
// both ends included.
func LinearGrid(minPeriod, maxPeriod float64, n int) (Grid, error) {
	switch {
	case n <= 0:
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidGrid, n)
	case !(minPeriod > 0) || !(maxPeriod > 0):
		return nil, fmt.Errorf("%w: bounds must be positive, got [%v, %v]", ErrInvalidGrid, minPeriod, maxPeriod)
	case minPeriod >= maxPeriod:
		return nil, fmt.Errorf("%w: minimum %v must be below maximum %v", ErrInvalidGrid, minPeriod, maxPeriod)
	}

	if n == 1 {
		return Grid{minPeriod}, nil
	}

	grid := make(Grid, n)
	step := (maxPeriod - minPeriod) / float64(n-1)
	for i := range grid {
		grid[i] = minPeriod + float64(i)*step
	}
	grid[n-1] = maxPeriod
	return grid, nil
}

// Validate checks that the grid is non-empty, positive and ascending.
func (g Grid) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidGrid)
	}
	for i, p := range g {
		if !(p > 0) {
			return fmt.Errorf("%w: period %d is not positive: %v", ErrInvalidGrid, i, p)
		}
		if i > 0 && p < g[i-1] {
			return fmt.Errorf("%w: period %d (%v) is below its predecessor (%v)", ErrInvalidGrid, i, p, g[i-1])
		}
	}
	return nil
}
