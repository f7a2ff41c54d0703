package app

import (
	"math"

	"github.com/roman-kulish/transit-search/internal/bls"
	"github.com/roman-kulish/transit-search/internal/fold"
	"github.com/roman-kulish/transit-search/internal/lightcurve"
	"github.com/roman-kulish/transit-search/internal/pipeline"
)

// FigureData is everything the report figure shows, in display units.
type FigureData struct {
	Target  string
	Samples int

	// Light curve panel
	Segments   []lightcurve.SegmentView
	TimeMin    float64 // Display time range after offsets
	TimeMax    float64
	FluxBounds FluxBounds

	// Periodogram panel
	Periods  []float64
	Powers   []float64
	Best     bls.BestFit
	Complete bool

	// Folded panel
	Folded     *fold.PhaseFoldedSeries
	Binned     *fold.BinnedCurve
	FoldBounds FluxBounds
}

// NewFigureData lays out a pipeline result for rendering.
func NewFigureData(res *pipeline.Result) *FigureData {
	fig := &FigureData{
		Target:   res.Target,
		Samples:  res.Series.Len(),
		Best:     res.Best,
		Complete: res.Complete(),
		Folded:   res.Folded,
		Binned:   res.Binned,
		TimeMin:  math.Inf(1),
		TimeMax:  math.Inf(-1),
	}

	fig.Segments = res.Series.DisplayLayout(res.Detrended.Trend)

	var flux []float64
	for _, view := range fig.Segments {
		if view.Empty {
			continue
		}
		for _, t := range view.Time {
			fig.TimeMin = math.Min(fig.TimeMin, t-view.Offset)
			fig.TimeMax = math.Max(fig.TimeMax, t-view.Offset)
		}
		flux = append(flux, view.Flux...)
	}
	if fig.TimeMin > fig.TimeMax {
		fig.TimeMin, fig.TimeMax = 0, 1
	}
	fig.FluxBounds = RobustBounds(flux)

	pg := res.Periodogram
	for i, ok := range pg.Evaluated {
		if ok {
			fig.Periods = append(fig.Periods, pg.Period[i])
			fig.Powers = append(fig.Powers, pg.Power[i])
		}
	}

	binMin := math.NaN()
	for _, b := range res.Binned.Bins {
		if b.Flux != nil && (math.IsNaN(binMin) || *b.Flux < binMin) {
			binMin = *b.Flux
		}
	}
	fig.FoldBounds = RobustBounds(res.Folded.Flux, binMin)

	return fig
}
