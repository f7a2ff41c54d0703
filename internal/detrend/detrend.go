// Package detrend removes slow stellar and instrumental variability from a
// light curve with a time-windowed robust location filter.
package detrend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

const (
	DefaultWindowLength   = 0.35
	DefaultBreakTolerance = 0.5
	DefaultMinPoints      = 3

	// biweight tuning constants
	defaultCVal          = 5.0
	defaultTolerance     = 1e-6
	defaultMaxIterations = 50

	// points evaluated per task handed to a worker
	blockSize = 2048
)

// ErrInvalidParameters is returned by New for unusable settings.
var ErrInvalidParameters = errors.New("invalid detrend parameters")

// Config holds the detrending parameters.
type Config struct {
	WindowLength   float64 // Width of the sliding time window
	BreakTolerance float64 // Gaps wider than this split the series
	MinPoints      int     // Fewer finite samples in a window yield NaN
	Workers        int     // Concurrent workers, runtime.NumCPU() when 0
}

// DefaultConfig returns the default detrending parameters.
func DefaultConfig() Config {
	return Config{
		WindowLength:   DefaultWindowLength,
		BreakTolerance: DefaultBreakTolerance,
		MinPoints:      DefaultMinPoints,
	}
}

// Result is the output of Detrend.
type Result struct {
	Trend           lightcurve.TrendModel
	Flattened       *lightcurve.FlattenedSeries
	Underdetermined int // Number of points with NaN trend
	Chunks          int // Number of gap-separated chunks
}

// Detrender fits a biweight trend over a sliding time window.
type Detrender struct {
	cfg Config
}

// New validates cfg and creates a Detrender.
func New(cfg Config) (*Detrender, error) {
	switch {
	case !(cfg.WindowLength > 0):
		return nil, fmt.Errorf("%w: window length must be positive, got %v", ErrInvalidParameters, cfg.WindowLength)
	case !(cfg.BreakTolerance > 0):
		return nil, fmt.Errorf("%w: break tolerance must be positive, got %v", ErrInvalidParameters, cfg.BreakTolerance)
	case cfg.MinPoints < 1:
		return nil, fmt.Errorf("%w: minimum window points must be at least 1, got %d", ErrInvalidParameters, cfg.MinPoints)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Detrender{cfg: cfg}, nil
}

// Detrend evaluates the trend at every sample time of series and divides
// the flux by it. series must be sorted by time and is not modified.
func (d *Detrender) Detrend(ctx context.Context, series *lightcurve.StitchedSeries) (*Result, error) {
	n := series.Len()
	trend := make(lightcurve.TrendModel, n)
	chunks := splitChunks(series.Time, d.cfg.BreakTolerance)

	// chunkOf[i] is the chunk holding sample i
	chunkOf := make([]int, n)
	for c, r := range chunks {
		for i := r.Start; i < r.End; i++ {
			chunkOf[i] = c
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for start := 0; start < n; start += blockSize {
		end := min(start+blockSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			values := make([]float64, 0, 256)
			dev := make([]float64, 0, 256)
			for i := start; i < end; i++ {
				values, dev = d.window(series, chunks[chunkOf[i]], i, values[:0], dev[:0])
				if len(values) < d.cfg.MinPoints {
					trend[i] = math.NaN()
					continue
				}
				trend[i] = biweight(values, dev, defaultCVal, defaultTolerance, defaultMaxIterations)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Trend: trend,
		Flattened: &lightcurve.FlattenedSeries{
			Time: append([]float64(nil), series.Time...),
			Flux: make([]float64, n),
		},
		Chunks: len(chunks),
	}
	for i, f := range series.Flux {
		if math.IsNaN(trend[i]) {
			res.Underdetermined++
		}
		res.Flattened.Flux[i] = f / trend[i]
	}

	return res, nil
}

// window collects the finite flux values within half a window length of
// sample i, without leaving chunk r.
func (d *Detrender) window(series *lightcurve.StitchedSeries, r lightcurve.Range, i int, values, dev []float64) ([]float64, []float64) {
	half := d.cfg.WindowLength / 2
	times := series.Time[r.Start:r.End]

	lo := r.Start + sort.SearchFloat64s(times, series.Time[i]-half)
	for j := lo; j < r.End && series.Time[j] <= series.Time[i]+half; j++ {
		f := series.Flux[j]
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		values = append(values, f)
	}

	if cap(dev) < len(values) {
		dev = make([]float64, len(values))
	}
	return values, dev[:len(values)]
}

// splitChunks partitions sorted times wherever consecutive samples are more
// than tolerance apart.
func splitChunks(times []float64, tolerance float64) []lightcurve.Range {
	if len(times) == 0 {
		return nil
	}

	var chunks []lightcurve.Range
	start := 0
	for i := 1; i < len(times); i++ {
		if times[i]-times[i-1] > tolerance {
			chunks = append(chunks, lightcurve.Range{Start: start, End: i})
			start = i
		}
	}
	return append(chunks, lightcurve.Range{Start: start, End: len(times)})
}
