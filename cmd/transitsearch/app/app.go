package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/transit-search/internal/config"
	"github.com/roman-kulish/transit-search/internal/metrics"
	"github.com/roman-kulish/transit-search/internal/pipeline"
	"github.com/roman-kulish/transit-search/internal/storage"
)

// Run searches target, renders its report figure and, when configured,
// stores the result and writes the metrics file. The best period is printed
// to out.
func Run(ctx context.Context, cfg *config.Config, target string, logger *slog.Logger, out io.Writer) (err error) {
	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	if cfg.MetricsFile != "" {
		defer func() {
			if werr := m.WriteFile(cfg.MetricsFile); werr != nil {
				err = errors.Join(err, werr)
			}
		}()
	}

	p, err := pipeline.New(*cfg, os.DirFS(cfg.DataDir),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m))
	if err != nil {
		return err
	}

	res, err := p.Search(ctx, target)
	if err != nil {
		return err
	}

	path, err := renderReport(cfg, res, m)
	if err != nil {
		return err
	}
	logger.Info("report written", slog.String("target", res.Target), slog.String("destination", path))

	if cfg.DB != "" {
		runID, err := storeResult(ctx, cfg, res, m)
		if err != nil {
			return fmt.Errorf("storing result: %w", err)
		}
		logger.Info("result stored", slog.String("db", cfg.DB), slog.Int64("run", runID))
	}

	status := "complete"
	if !res.Complete() {
		status = "partial"
	}
	_, err = fmt.Fprintf(out, "%s: best period %.5f d, power %.4g, depth %s ppm (%s search, %s samples)\n",
		res.Target,
		res.Best.Period,
		res.Best.Power,
		humanize.Comma(ppm(res.Best.Depth)),
		status,
		humanize.Comma(int64(res.Series.Len())))
	return err
}

func renderReport(cfg *config.Config, res *pipeline.Result, m *metrics.Metrics) (string, error) {
	defer m.ObserveStage(metrics.StageRender, time.Now())

	renderer, err := NewFigureRenderer(RenderConfig{})
	if err != nil {
		return "", fmt.Errorf("creating figure renderer: %w", err)
	}

	img, err := renderer.Render(NewFigureData(res))
	if err != nil {
		return "", fmt.Errorf("rendering figure: %w", err)
	}

	path := ReportPath(cfg.OutputDir, res.Target, cfg.Format)
	if err = WriteImage(path, cfg.Format, img); err != nil {
		return "", fmt.Errorf("writing figure: %w", err)
	}
	return path, nil
}

func storeResult(ctx context.Context, cfg *config.Config, res *pipeline.Result, m *metrics.Metrics) (runID int64, err error) {
	defer m.ObserveStage(metrics.StageStore, time.Now())

	var dump bytes.Buffer
	if err = cfg.Dump(&dump); err != nil {
		return 0, fmt.Errorf("encoding configuration: %w", err)
	}

	store := storage.NewSqliteStore(cfg.DB)
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	return SaveResult(ctx, store, res, dump.String())
}

// SaveResult records res and its evaluated periodogram in store.
func SaveResult(ctx context.Context, store storage.Store, res *pipeline.Result, configDump string) (int64, error) {
	runID, err := store.CreateRun(ctx, &storage.RunRecord{
		Target:          res.Target,
		BestPeriod:      res.Best.Period,
		BestPower:       res.Best.Power,
		BestDepth:       res.Best.Depth,
		BestTransitTime: res.Best.TransitTime,
		Duration:        res.Best.Duration,
		Samples:         res.Series.Len(),
		Complete:        res.Complete(),
	}, configDump)
	if err != nil {
		return 0, err
	}

	if err = store.StorePeriodogram(ctx, runID, res.Periodogram); err != nil {
		return runID, err
	}
	return runID, nil
}

// CandidatesConfig filters the runs listed by Candidates.
type CandidatesConfig struct {
	Target   string
	MinPower *float64
	Limit    int
}

// Candidates prints the stored runs of cfg.DB ranked by best power.
func Candidates(ctx context.Context, cfg *config.Config, filter CandidatesConfig, logger *slog.Logger, out io.Writer) (err error) {
	if cfg.DB == "" {
		return fmt.Errorf("%w: db path is required", config.ErrInvalidConfiguration)
	}
	if _, err = os.Stat(cfg.DB); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", cfg.DB, err)
	}

	store := storage.NewSqliteStore(cfg.DB)
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	var opts []storage.ReaderOption
	var filters []any
	if filter.Target != "" {
		target := pipeline.TargetName(filter.Target)
		opts = append(opts, storage.WithTarget(target))
		filters = append(filters, slog.String("target", target))
	}
	if filter.MinPower != nil {
		opts = append(opts, storage.WithMinPower(*filter.MinPower))
		filters = append(filters, slog.Float64("minPower", *filter.MinPower))
	}
	if filter.Limit > 0 {
		opts = append(opts, storage.WithLimit(filter.Limit))
		filters = append(filters, slog.Int("limit", filter.Limit))
	}
	logger.Debug("candidate query", filters...)

	runs, err := store.Runs(ctx, opts...)
	if err != nil {
		return err
	}

	return PrintCandidates(out, runs)
}

// PrintCandidates writes runs as an aligned table.
func PrintCandidates(out io.Writer, runs []*storage.RunRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTARGET\tPERIOD [d]\tPOWER\tDEPTH [ppm]\tSAMPLES\tSEARCH\tCREATED")
	for _, r := range runs {
		status := "complete"
		if !r.Complete {
			status = "partial"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.5f\t%.4g\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Target,
			r.BestPeriod,
			r.BestPower,
			humanize.Comma(ppm(r.BestDepth)),
			humanize.Comma(int64(r.Samples)),
			status,
			humanize.Time(r.CreatedAt))
	}
	return tw.Flush()
}

// ppm converts a relative depth to parts per million.
func ppm(depth float64) int64 {
	return int64(math.Round(depth * 1e6))
}
