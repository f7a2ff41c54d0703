package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 10.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0
	pixelsPerRow   = 60.0
	legendSwatch   = 10
	legendPadding  = 4
)

type annotatorConfig struct {
	FontSize float64
	Borders  BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// grid draws light guide lines at the value ticks of p.
func (a *annotator) grid(img *image.RGBA, p *panel) {
	step := niceStep(p.yMax-p.yMin, rowCount(p))
	for _, v := range ticks(p.yMin, p.yMax, step) {
		p.hline(img, v, gridColor)
	}
}

func (a *annotator) annotate(img *image.RGBA, fig *FigureData, lc, pg, ph *panel) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func() error
	}{
		{"drawing light curve scales", func() error {
			title := fmt.Sprintf("%s light curve, %d segments, display gaps closed", fig.Target, len(fig.Segments))
			return a.drawPanel(img, lc, title, "Time - offset [d]", "Normalized flux", formatTime, formatFlux)
		}},
		{"drawing legend", func() error {
			return a.drawLegend(img, lc, legendEntries(fig))
		}},
		{"drawing periodogram scales", func() error {
			title := fmt.Sprintf("Box least squares periodogram, duration %s d", formatFixed(fig.Best.Duration, 3))
			if !fig.Complete {
				title += " (partial)"
			}
			return a.drawPanel(img, pg, title, "Period [d]", "Power", formatTime, formatPower)
		}},
		{"drawing folded scales", func() error {
			title := fmt.Sprintf("Folded at %s d", formatFixed(fig.Best.Period, 4))
			return a.drawPanel(img, ph, title, "Phase", "Flattened flux", formatPhase, formatFlux)
		}},
		{"drawing info bar", func() error {
			return a.drawInfoBar(img, fig)
		}},
	}
	for _, op := range ops {
		if err := op.fn(); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

// drawPanel labels both axes of p and writes its title above it.
func (a *annotator) drawPanel(img *image.RGBA, p *panel, title, xLabel, yLabel string, xFormat, yFormat func(float64, float64) string) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	// title, centred in the top border
	titleWidth := font.MeasureString(a.fontFace, title).Round()
	pt := freetype.Pt(p.area.Min.X+(p.area.Dx()-titleWidth)/2, p.area.Min.Y-(a.config.Borders.Top-fontHeight)/2-metrics.Descent.Round())
	if _, err := a.context.DrawString(title, pt); err != nil {
		return fmt.Errorf("drawing title: %w", err)
	}

	// argument scale
	xStep := niceStep(p.xMax-p.xMin, int(float64(p.area.Dx())/pixelsPerLabel))
	for _, v := range ticks(p.xMin, p.xMax, xStep) {
		x, ok := p.xPixel(v)
		if !ok {
			continue
		}
		for y := p.area.Max.Y; y < p.area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, axisColor)
		}

		label := xFormat(v, xStep)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(x-width/2, p.area.Max.Y+tickMarkLength+fontHeight)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing argument label: %w", err)
		}
	}

	width := font.MeasureString(a.fontFace, xLabel).Round()
	pt = freetype.Pt(p.area.Max.X-width, p.area.Max.Y+tickMarkLength+2*fontHeight+4)
	if _, err := a.context.DrawString(xLabel, pt); err != nil {
		return fmt.Errorf("drawing argument name: %w", err)
	}

	// value scale
	yStep := niceStep(p.yMax-p.yMin, rowCount(p))
	for _, v := range ticks(p.yMin, p.yMax, yStep) {
		y, ok := p.yPixel(v)
		if !ok {
			continue
		}
		for x := p.area.Min.X - tickMarkLength; x < p.area.Min.X; x++ {
			img.Set(x, y, axisColor)
		}

		label := yFormat(v, yStep)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(p.area.Min.X-tickMarkLength-4-width, y+fontHeight/2-metrics.Descent.Round())
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing value label: %w", err)
		}
	}

	pt = freetype.Pt(4, p.area.Min.Y-4)
	if p.area.Min.Y-4 < fontHeight {
		pt = freetype.Pt(4, fontHeight)
	}
	a.context.SetSrc(image.NewUniform(color.Gray{Y: 0x60}))
	defer a.context.SetSrc(image.Black)
	if _, err := a.context.DrawString(yLabel, pt); err != nil {
		return fmt.Errorf("drawing value name: %w", err)
	}

	return nil
}

type legendEntry struct {
	label string
	color color.Color
}

// legendEntries names every non-empty segment by its 1-based position and
// adds the trend when one is drawn.
func legendEntries(fig *FigureData) []legendEntry {
	palette := SegmentPalette(len(fig.Segments))

	var entries []legendEntry
	var trend bool
	for i, view := range fig.Segments {
		if view.Empty {
			continue
		}
		entries = append(entries, legendEntry{label: fmt.Sprintf("LC %d", i+1), color: palette[i]})
		trend = trend || view.Trend != nil
	}
	if trend {
		entries = append(entries, legendEntry{label: "Trend", color: trendColor})
	}
	return entries
}

// drawLegend writes the entries in one row below the argument scale of p,
// each after a colour swatch. Entries that would run into the argument name
// are left out.
func (a *annotator) drawLegend(img *image.RGBA, p *panel, entries []legendEntry) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	baseline := p.area.Max.Y + tickMarkLength + 2*fontHeight + 4
	limit := p.area.Max.X - int(pixelsPerLabel)

	x := p.area.Min.X
	for _, e := range entries {
		width := font.MeasureString(a.fontFace, e.label).Round()
		if x+legendSwatch+legendPadding+width > limit {
			break
		}

		swatch := image.Rect(x, baseline-legendSwatch, x+legendSwatch, baseline)
		draw.Draw(img, swatch, image.NewUniform(e.color), image.Point{}, draw.Src)

		pt := freetype.Pt(x+legendSwatch+legendPadding, baseline)
		if _, err := a.context.DrawString(e.label, pt); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
		x += legendSwatch + legendPadding + width + 3*legendPadding
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, fig *FigureData) error {
	var sb strings.Builder

	sb.WriteString(fig.Target)
	sb.WriteString(fmt.Sprintf("; Period: %s d", formatFixed(fig.Best.Period, 5)))
	sb.WriteString(fmt.Sprintf("; Power: %s", formatPower(fig.Best.Power, 0)))
	sb.WriteString(fmt.Sprintf("; Depth: %s ppm", humanize.Comma(ppm(fig.Best.Depth))))
	sb.WriteString(fmt.Sprintf("; Mid-transit: %s d", formatFixed(fig.Best.TransitTime, 4)))
	sb.WriteString(fmt.Sprintf("; Samples: %s", humanize.Comma(int64(fig.Samples))))
	sb.WriteString(fmt.Sprintf("; Periods: %s", humanize.Comma(int64(len(fig.Periods)))))
	if !fig.Complete {
		sb.WriteString(" (search stopped early)")
	}

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	bar := img.Bounds().Max.Y
	textY := bar - (defaultInfoBar-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

func rowCount(p *panel) int {
	return max(2, int(float64(p.area.Dy())/pixelsPerRow))
}

// decimals returns the number of fraction digits needed to tell ticks one
// step apart.
func decimals(step float64) int {
	if !(step > 0) || step >= 1 {
		return 0
	}
	return int(math.Ceil(-math.Log10(step) - 1e-9))
}

func formatFixed(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}

func formatTime(v, step float64) string {
	return formatFixed(v, decimals(step))
}

func formatFlux(v, step float64) string {
	return formatFixed(v, max(decimals(step), 3))
}

func formatPhase(v, step float64) string {
	return formatFixed(v, max(decimals(step), 1))
}

func formatPower(v, _ float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 3, 64)
}
