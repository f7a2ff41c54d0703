// Package pipeline runs a transit search for one target: load, stitch,
// detrend, period search and phase folding.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/transit-search/internal/bls"
	"github.com/roman-kulish/transit-search/internal/config"
	"github.com/roman-kulish/transit-search/internal/detrend"
	"github.com/roman-kulish/transit-search/internal/fold"
	"github.com/roman-kulish/transit-search/internal/lightcurve"
	"github.com/roman-kulish/transit-search/internal/logging"
	"github.com/roman-kulish/transit-search/internal/metrics"
	"github.com/roman-kulish/transit-search/internal/segment"
)

const targetPrefix = "TIC"

// ErrEmptyInput is returned when a target yields no usable samples.
var ErrEmptyInput = errors.New("no usable light-curve samples")

// Result carries every product of a search run.
type Result struct {
	Target      string
	Discovery   *segment.Discovery
	Report      *segment.Report
	Series      *lightcurve.StitchedSeries
	Detrended   *detrend.Result
	Periodogram *bls.Periodogram
	Best        bls.BestFit
	Folded      *fold.PhaseFoldedSeries
	Binned      *fold.BinnedCurve
	Elapsed     time.Duration
}

// Complete reports whether every trial period was evaluated.
func (r *Result) Complete() bool {
	return r.Periodogram != nil && r.Periodogram.Complete
}

// WithLogger sets the logger for the pipeline and its stages.
func WithLogger(logger *slog.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the collectors the pipeline records into.
func WithMetrics(m *metrics.Metrics) func(*Pipeline) {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithDecoders replaces the segment decoders.
func WithDecoders(d segment.Decoders) func(*Pipeline) {
	return func(p *Pipeline) {
		p.decoders = d
	}
}

// Pipeline runs searches with one validated configuration.
type Pipeline struct {
	cfg      config.Config
	fsys     fs.FS
	decoders segment.Decoders
	logger   *slog.Logger
	metrics  *metrics.Metrics

	loader    *segment.Loader
	detrender *detrend.Detrender
	searcher  *bls.Searcher
	grid      bls.Grid
}

// New validates cfg and prepares the stages. Files are read from fsys,
// which is rooted at the data directory. No computation happens when the
// configuration is invalid.
func New(cfg config.Config, fsys fs.FS, options ...func(*Pipeline)) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := Pipeline{
		cfg:      cfg,
		fsys:     fsys,
		decoders: segment.DefaultDecoders(cfg.FluxColumn),
		logger:   logging.Discard(),
	}

	for _, option := range options {
		option(&p)
	}

	var err error
	p.grid, err = bls.LinearGrid(cfg.PeriodMin, cfg.PeriodMax, cfg.GridSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfiguration, err)
	}

	p.detrender, err = detrend.New(detrend.Config{
		WindowLength:   cfg.WindowLength,
		BreakTolerance: cfg.BreakTolerance,
		MinPoints:      cfg.MinWindowPoints,
		Workers:        cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfiguration, err)
	}

	p.searcher, err = bls.NewSearcher(cfg.TransitDuration,
		bls.WithLogger(p.logger),
		bls.WithWorkers(cfg.Workers),
		bls.WithOversample(cfg.Oversample))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfiguration, err)
	}

	p.loader = segment.NewLoader(fsys,
		segment.WithLogger(p.logger),
		segment.WithWorkers(cfg.Workers),
		segment.WithDecoders(p.decoders))

	return &p, nil
}

// TargetName normalises a target identifier to its directory name, so
// "123" and "TIC123" both become "TIC123".
func TargetName(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(strings.ToUpper(id), targetPrefix) {
		return targetPrefix + id[len(targetPrefix):]
	}
	return targetPrefix + id
}

// Search discovers the segment files of target under the data directory
// and runs the pipeline on them.
func (p *Pipeline) Search(ctx context.Context, target string) (*Result, error) {
	target = TargetName(target)

	discovery, err := segment.Discover(p.fsys, target, p.cfg.CadenceTag, p.decoders)
	if err != nil {
		return nil, err
	}

	p.logger.Info("discovered segment files",
		slog.String("target", target),
		slog.Int("files", len(discovery.Paths)),
		slog.Int("skipped", len(discovery.Skipped)))

	res, err := p.Run(ctx, target, discovery.Paths)
	if res != nil {
		res.Discovery = discovery
		res.Report.Skipped = discovery.Skipped
		p.metrics.RecordFiles(0, len(discovery.Skipped), nil)
	}
	return res, err
}

// Run searches the given files, which are paths within the data directory.
// It returns ErrEmptyInput when nothing usable is left after loading or
// detrending. When the time budget runs out the search continues with the
// evaluated part of the grid and Result.Complete is false. A cancelled ctx
// returns the partial result together with an error wrapping
// bls.ErrSearchAborted.
func (p *Pipeline) Run(ctx context.Context, target string, paths []string) (*Result, error) {
	started := time.Now()
	logger := p.logger.With(slog.String("target", target))
	res := Result{Target: target}

	stage := time.Now()
	segments, report, err := p.loader.Load(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("loading segments: %w", err)
	}
	res.Report = report
	p.metrics.ObserveStage(metrics.StageLoad, stage)

	kinds := make([]string, 0, report.Failed())
	for _, f := range report.Failures {
		kinds = append(kinds, string(f.Kind))
	}
	p.metrics.RecordFiles(report.Loaded, 0, kinds)

	logger.Info("loaded segments",
		slog.Int("loaded", report.Loaded),
		slog.Int("failed", report.Failed()),
		slog.Int("empty", report.Empty),
		slog.String("samples", humanize.Comma(int64(report.Samples))))

	if report.Samples == 0 {
		return &res, fmt.Errorf("%w: %s has %d readable segments", ErrEmptyInput, target, report.Loaded)
	}

	stage = time.Now()
	res.Series = lightcurve.Stitch(segments)
	p.metrics.ObserveStage(metrics.StageStitch, stage)
	p.metrics.RecordSamples(res.Series.Len())

	stage = time.Now()
	res.Detrended, err = p.detrender.Detrend(ctx, res.Series)
	if err != nil {
		return &res, fmt.Errorf("detrending: %w", err)
	}
	p.metrics.ObserveStage(metrics.StageDetrend, stage)

	if res.Detrended.Underdetermined > 0 {
		logger.Warn("trend is undetermined for some samples",
			slog.String("samples", humanize.Comma(int64(res.Detrended.Underdetermined))),
			slog.Float64("windowLength", p.cfg.WindowLength))
	}
	if finiteCount(res.Detrended.Flattened.Flux) == 0 {
		return &res, fmt.Errorf("%w: every detrended sample of %s is undetermined", ErrEmptyInput, target)
	}

	if err = p.search(ctx, logger, &res); err != nil {
		return &res, err
	}

	stage = time.Now()
	res.Folded, err = fold.Fold(res.Detrended.Flattened, res.Best.Period)
	if err != nil {
		return &res, fmt.Errorf("folding: %w", err)
	}
	res.Binned, err = fold.BinCurve(res.Folded, p.cfg.PhaseBins)
	if err != nil {
		return &res, fmt.Errorf("binning: %w", err)
	}
	p.metrics.ObserveStage(metrics.StageFold, stage)

	res.Elapsed = time.Since(started)
	logger.Info("search finished",
		slog.Float64("period", res.Best.Period),
		slog.Float64("power", res.Best.Power),
		slog.Float64("depth", res.Best.Depth),
		slog.Bool("complete", res.Complete()),
		slog.Duration("elapsed", res.Elapsed))

	return &res, nil
}

func (p *Pipeline) search(ctx context.Context, logger *slog.Logger, res *Result) error {
	searchCtx := ctx
	if p.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, p.cfg.TimeBudget)
		defer cancel()
	}

	logger.Info("searching periods",
		slog.Int("periods", len(p.grid)),
		slog.Float64("min", p.grid[0]),
		slog.Float64("max", p.grid[len(p.grid)-1]),
		slog.Float64("duration", p.cfg.TransitDuration))

	stage := time.Now()
	pg, err := p.searcher.Search(searchCtx, res.Detrended.Flattened, p.grid)
	p.metrics.ObserveStage(metrics.StageSearch, stage)
	res.Periodogram = pg

	switch {
	case err == nil:
	case errors.Is(err, bls.ErrSearchAborted) && ctx.Err() == nil && pg.EvaluatedCount() > 0:
		logger.Warn("time budget exhausted, using the evaluated periods",
			slog.Int("evaluated", pg.EvaluatedCount()),
			slog.Int("total", pg.Len()),
			slog.Duration("budget", p.cfg.TimeBudget))
	case errors.Is(err, bls.ErrNoSamples):
		return fmt.Errorf("%w: %w", ErrEmptyInput, err)
	default:
		return fmt.Errorf("searching periods: %w", err)
	}

	res.Best, err = pg.Best()
	if err != nil {
		return fmt.Errorf("selecting best period: %w", err)
	}
	p.metrics.RecordBest(res.Best.Period, res.Best.Power)
	return nil
}

func finiteCount(values []float64) int {
	var n int
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
