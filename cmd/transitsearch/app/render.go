package app

import (
	"fmt"
	"image"
	"image/draw"
	"math"
)

const (
	defaultWidth       = 1600
	defaultPanelHeight = 380
	defaultPanelGap    = 30

	// Default border sizes in pixels
	defaultTopBorder    = 50
	defaultLeftBorder   = 110
	defaultBottomBorder = 50
	defaultRightBorder  = 40
	defaultInfoBar      = 40

	pointRadius   = 1
	diamondRadius = 4
	dashLength    = 6
)

// BorderConfig defines the white space around every panel.
type BorderConfig struct {
	Top    int // Space for the panel title
	Left   int // Space for the value scale
	Bottom int // Space for the argument scale
	Right  int // Right padding
}

// RenderConfig holds the layout of the report figure.
type RenderConfig struct {
	Width        int     // Plot width of every panel in pixels
	PanelHeight  int     // Plot height of every panel in pixels
	PanelGap     int     // Vertical space between panels
	InfoBar      int     // Height of the summary line at the bottom
	FontSize     float64 // Font size in points
	BorderConfig BorderConfig
}

// FigureRenderer draws the three-panel transit search report: the stitched
// light curve with its trend, the periodogram and the folded light curve.
type FigureRenderer struct {
	config RenderConfig
}

// NewFigureRenderer creates a renderer, filling zero config values with
// defaults.
func NewFigureRenderer(config RenderConfig) (*FigureRenderer, error) {
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.PanelHeight == 0 {
		config.PanelHeight = defaultPanelHeight
	}
	if config.PanelGap == 0 {
		config.PanelGap = defaultPanelGap
	}
	if config.InfoBar == 0 {
		config.InfoBar = defaultInfoBar
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	if config.Width < 100 || config.PanelHeight < 50 {
		return nil, fmt.Errorf("figure too small: %dx%d", config.Width, config.PanelHeight)
	}

	return &FigureRenderer{config: config}, nil
}

// Render creates the report image.
func (r *FigureRenderer) Render(fig *FigureData) (*image.RGBA, error) {
	b := r.config.BorderConfig
	slot := b.Top + r.config.PanelHeight + b.Bottom

	fullWidth := b.Left + r.config.Width + b.Right
	fullHeight := 3*slot + 2*r.config.PanelGap + r.config.InfoBar
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	area := func(i int) image.Rectangle {
		top := i*(slot+r.config.PanelGap) + b.Top
		return image.Rect(b.Left, top, b.Left+r.config.Width, top+r.config.PanelHeight)
	}

	lc := newPanel(area(0), fig.TimeMin, fig.TimeMax, fig.FluxBounds.Min, fig.FluxBounds.Max)
	pg := r.periodogramPanel(area(1), fig)
	ph := newPanel(area(2), 0, 1, fig.FoldBounds.Min, fig.FoldBounds.Max)

	ann, err := newAnnotator(annotatorConfig{
		FontSize: r.config.FontSize,
		Borders:  b,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	// grid first so data is drawn over it
	ann.grid(img, lc)
	ann.grid(img, pg)
	ann.grid(img, ph)

	r.renderLightCurve(img, lc, fig)
	r.renderPeriodogram(img, pg, fig)
	r.renderFolded(img, ph, fig)

	for _, p := range []*panel{lc, pg, ph} {
		p.frame(img, axisColor)
	}

	if err = ann.annotate(img, fig, lc, pg, ph); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func (r *FigureRenderer) periodogramPanel(area image.Rectangle, fig *FigureData) *panel {
	xMin, xMax := 0.0, 1.0
	if n := len(fig.Periods); n > 0 {
		xMin, xMax = fig.Periods[0], fig.Periods[n-1]
	}

	var top float64
	for _, p := range fig.Powers {
		top = math.Max(top, p)
	}
	if !(top > 0) {
		top = 1
	}
	return newPanel(area, xMin, xMax, 0, top*1.1)
}

// renderLightCurve draws every segment at its display offset in its own
// colour with the trend on top.
func (r *FigureRenderer) renderLightCurve(img *image.RGBA, p *panel, fig *FigureData) {
	palette := SegmentPalette(len(fig.Segments))

	for i, view := range fig.Segments {
		if view.Empty {
			continue
		}
		for k, t := range view.Time {
			p.dot(img, t-view.Offset, view.Flux[k], pointRadius, palette[i])
		}
	}

	for _, view := range fig.Segments {
		if view.Empty || view.Trend == nil {
			continue
		}
		xs := make([]float64, len(view.Time))
		for k, t := range view.Time {
			xs[k] = t - view.Offset
		}
		p.polyline(img, xs, view.Trend, trendColor)
	}
}

func (r *FigureRenderer) renderPeriodogram(img *image.RGBA, p *panel, fig *FigureData) {
	p.vline(img, fig.Best.Period, dashLength, bestPeriodColor)
	p.polyline(img, fig.Periods, fig.Powers, powerColor)
}

func (r *FigureRenderer) renderFolded(img *image.RGBA, p *panel, fig *FigureData) {
	p.hline(img, 1, gridColor)

	for i, phase := range fig.Folded.Phase {
		p.dot(img, phase, fig.Folded.Flux[i], 0, foldedColor)
	}

	for _, b := range fig.Binned.Bins {
		if b.Phase == nil {
			continue
		}
		p.diamond(img, *b.Phase, *b.Flux, diamondRadius, binnedColor)
	}
}
