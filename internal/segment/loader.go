package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

// FailureKind classifies why a file was not loaded.
type FailureKind string

const (
	FailureOpen       FailureKind = "open"
	FailureNoDecoder  FailureKind = "no-decoder"
	FailureDecode     FailureKind = "decode"
	FailureFluxScale  FailureKind = "flux-scale"
	FailureMismatched FailureKind = "column-mismatch"
)

// Failure describes a file that was skipped because it could not be read.
// Err always wraps ErrUnreadableSegment.
type Failure struct {
	Path string
	Kind FailureKind
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Path, f.Kind, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report summarizes a batch load.
type Report struct {
	Considered int       // Number of files handed to the loader
	Loaded     int       // Files that produced a segment
	Empty      int       // Loaded files without a single usable sample
	Samples    int       // Usable samples across all loaded files
	Skipped    []string  // Files rejected before loading (cadence filter)
	Failures   []Failure // Files that could not be read
}

// Failed returns the number of files that could not be read.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// WithLogger sets the logger used to report skipped files.
func WithLogger(logger *slog.Logger) func(*Loader) {
	return func(l *Loader) {
		l.logger = logger.With(slog.String("component", "loader"))
	}
}

// WithWorkers sets the number of files decoded concurrently.
func WithWorkers(n int) func(*Loader) {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithDecoders replaces the decoders used to read files.
func WithDecoders(d Decoders) func(*Loader) {
	return func(l *Loader) {
		l.decoders = d
	}
}

// Loader reads light-curve files into segments. A file that cannot be read
// is recorded in the Report and does not affect the other files.
type Loader struct {
	fsys     fs.FS
	decoders Decoders
	workers  int
	logger   *slog.Logger
}

// NewLoader creates a loader reading files from fsys with a discard logger.
func NewLoader(fsys fs.FS, options ...func(*Loader)) *Loader {
	l := Loader{
		fsys:     fsys,
		decoders: DefaultDecoders(ColumnPDCSAPFlux),
		workers:  runtime.NumCPU(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Decoders returns the decoders the loader uses.
func (l *Loader) Decoders() Decoders {
	return l.decoders
}

// Load decodes and filters the given files. Segments are returned in the
// order of paths, omitting failed files. The only error returned is the
// context error when ctx is cancelled.
func (l *Loader) Load(ctx context.Context, paths []string) ([]lightcurve.Segment, *Report, error) {
	type result struct {
		segment lightcurve.Segment
		failure *Failure
	}

	results := make([]result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			seg, failure := l.loadFile(p)
			results[i] = result{segment: seg, failure: failure}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report := &Report{Considered: len(paths)}
	segments := make([]lightcurve.Segment, 0, len(paths))
	for _, r := range results {
		if r.failure != nil {
			l.logger.Warn("skipping unreadable file",
				slog.String("path", r.failure.Path),
				slog.String("kind", string(r.failure.Kind)),
				slog.String("error", r.failure.Err.Error()))

			report.Failures = append(report.Failures, *r.failure)
			continue
		}

		report.Loaded++
		report.Samples += r.segment.Len()
		if r.segment.IsEmpty() {
			report.Empty++
			l.logger.Info("file has no usable samples", slog.String("path", r.segment.Source))
		}
		segments = append(segments, r.segment)
	}

	return segments, report, nil
}

func (l *Loader) loadFile(p string) (seg lightcurve.Segment, failure *Failure) {
	fail := func(kind FailureKind, err error) (lightcurve.Segment, *Failure) {
		return lightcurve.Segment{}, &Failure{
			Path: p,
			Kind: kind,
			Err:  fmt.Errorf("%w: %w", ErrUnreadableSegment, err),
		}
	}

	dec := l.decoders.For(p)
	if dec == nil {
		return fail(FailureNoDecoder, ErrNoDecoder)
	}

	f, err := l.fsys.Open(p)
	if err != nil {
		return fail(FailureOpen, err)
	}
	defer f.Close()

	cols, err := decodeSafely(dec, f)
	if err != nil {
		return fail(FailureDecode, err)
	}
	if err = cols.validate(); err != nil {
		return fail(FailureMismatched, err)
	}

	seg, err = Filter(p, cols)
	if err != nil {
		return fail(FailureFluxScale, err)
	}
	return seg, nil
}

// decodeSafely turns a decoder panic on malformed input into an error so a
// single corrupt file cannot take the batch down.
func decodeSafely(dec Decoder, r io.Reader) (cols *Columns, err error) {
	defer func() {
		if p := recover(); p != nil {
			cols = nil
			err = errors.New(fmt.Sprint("decoder panic: ", p))
		}
	}()
	return dec.Decode(r)
}
