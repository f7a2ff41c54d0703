// Package bls implements a box least squares period search for a single,
// fixed transit duration.
package bls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

const (
	DefaultDuration   = 0.2
	DefaultOversample = 10

	// tasksPerWorker splits the grid finer than the worker count so a slow
	// block of long periods does not leave other workers idle.
	tasksPerWorker = 4
)

var (
	// ErrSearchAborted is returned when the search stops before every grid
	// period was evaluated. The accompanying periodogram is partial.
	ErrSearchAborted = errors.New("period search aborted")

	// ErrNoSamples is returned when the series has no finite samples.
	ErrNoSamples = errors.New("no finite samples to search")

	// ErrInvalidDuration is returned for a non-positive duration.
	ErrInvalidDuration = errors.New("invalid transit duration")
)

// WithLogger sets the logger for the searcher.
func WithLogger(logger *slog.Logger) func(*Searcher) {
	return func(s *Searcher) {
		s.logger = logger.With(slog.String("component", "bls"))
	}
}

// WithWorkers sets the number of periods evaluated concurrently.
func WithWorkers(n int) func(*Searcher) {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithOversample sets the number of phase bins spanned by one duration.
func WithOversample(n int) func(*Searcher) {
	return func(s *Searcher) {
		if n > 0 {
			s.oversample = n
		}
	}
}

// Searcher evaluates the box statistic over a period grid.
type Searcher struct {
	duration   float64
	oversample int
	workers    int
	logger     *slog.Logger
}

// NewSearcher creates a searcher for boxes of the given duration.
func NewSearcher(duration float64, options ...func(*Searcher)) (*Searcher, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	s := Searcher{
		duration:   duration,
		oversample: DefaultOversample,
		workers:    runtime.NumCPU(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Duration returns the box duration.
func (s *Searcher) Duration() float64 {
	return s.duration
}

// Search computes the periodogram of series over grid. Samples with NaN
// flux are ignored. When ctx is cancelled the partial periodogram is
// returned together with an error wrapping ErrSearchAborted and the
// context error.
func (s *Searcher) Search(ctx context.Context, series *lightcurve.FlattenedSeries, grid Grid) (*Periodogram, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	data := prepare(series)
	if data.n == 0 {
		return nil, ErrNoSamples
	}

	pg := newPeriodogram(grid, s.duration)

	tasks := min(len(grid), s.workers*tasksPerWorker)
	size := (len(grid) + tasks - 1) / tasks

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for start := 0; start < len(grid); start += size {
		end := min(start+size, len(grid))
		g.Go(func() error {
			var sc scratch
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				pg.Power[i], pg.Depth[i], pg.TransitTime[i] = s.evaluate(data, grid[i], &sc)
				pg.Evaluated[i] = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("period search aborted",
			slog.Int("evaluated", pg.EvaluatedCount()),
			slog.Int("total", pg.Len()))
		return pg, fmt.Errorf("%w: %w", ErrSearchAborted, err)
	}

	pg.Complete = true
	return pg, nil
}

// samples is the NaN-free, mean-subtracted input of a search.
type samples struct {
	t   []float64
	y   []float64
	ref float64 // Reference epoch, the earliest time
	n   int
	sum float64
}

func prepare(series *lightcurve.FlattenedSeries) samples {
	var d samples
	d.ref = math.Inf(1)
	for i, f := range series.Flux {
		t := series.Time[i]
		if math.IsNaN(f) || math.IsInf(f, 0) || math.IsNaN(t) {
			continue
		}
		d.t = append(d.t, t)
		d.y = append(d.y, f)
		d.ref = math.Min(d.ref, t)
	}
	d.n = len(d.t)
	if d.n == 0 {
		return d
	}

	floats.AddConst(-stat.Mean(d.y, nil), d.y)
	d.sum = floats.Sum(d.y)
	return d
}

// scratch holds per-worker phase bins reused across periods.
type scratch struct {
	sumY  []float64
	count []int
}

func (sc *scratch) reset(n int) {
	if cap(sc.sumY) < 2*n+1 {
		sc.sumY = make([]float64, 2*n+1)
		sc.count = make([]int, 2*n+1)
	}
	sc.sumY = sc.sumY[:2*n+1]
	sc.count = sc.count[:2*n+1]
	clear(sc.sumY)
	clear(sc.count)
}

// evaluate folds the samples on period, bins the phases in steps of
// duration/oversample and slides a box of one duration across all starting
// bins, wrapping around phase 1. It returns the largest log-likelihood
// improvement of a dip over a flat model with the matching depth and
// transit mid-time.
func (s *Searcher) evaluate(d samples, period float64, sc *scratch) (power, depth, transitTime float64) {
	binWidth := s.duration / float64(s.oversample)
	nBins := int(math.Ceil(period / binWidth))
	width := s.oversample
	if width >= nBins {
		// the box would cover the whole orbit, nothing is out of transit
		return 0, 0, 0
	}

	sc.reset(nBins)
	for i, t := range d.t {
		phase := math.Mod(t-d.ref, period)
		b := int(phase / binWidth)
		if b >= nBins {
			b = nBins - 1
		}
		sc.sumY[b+1] += d.y[i]
		sc.count[b+1]++
	}

	// prefix sums over two turns so boxes can wrap around
	for b := 1; b <= nBins; b++ {
		sc.sumY[nBins+b] = sc.sumY[b]
		sc.count[nBins+b] = sc.count[b]
	}
	for b := 1; b <= 2*nBins; b++ {
		sc.sumY[b] += sc.sumY[b-1]
		sc.count[b] += sc.count[b-1]
	}

	n := float64(d.n)
	best := -1
	for k := 0; k < nBins; k++ {
		nIn := sc.count[k+width] - sc.count[k]
		nOut := d.n - nIn
		if nIn == 0 || nOut == 0 {
			continue
		}

		yIn := sc.sumY[k+width] - sc.sumY[k]
		meanIn := yIn / float64(nIn)
		meanOut := (d.sum - yIn) / float64(nOut)

		dd := meanOut - meanIn
		if dd <= 0 {
			continue
		}

		p := 0.5 * float64(nIn) * float64(nOut) / n * dd * dd
		if p > power {
			power, depth, best = p, dd, k
		}
	}

	if best >= 0 {
		transitTime = d.ref + float64(best)*binWidth + s.duration/2
		if transitTime >= d.ref+period {
			transitTime -= period
		}
	}
	return power, depth, transitTime
}
