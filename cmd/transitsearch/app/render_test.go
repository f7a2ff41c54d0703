package app

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

func TestRobustBounds(t *testing.T) {
	t.Run("outliers do not stretch the range", func(t *testing.T) {
		values := make([]float64, 200)
		for i := range values {
			values[i] = 1 + 0.001*float64(i%10-5)
		}
		values[7] = 50
		values[8] = -40
		values[9] = math.NaN()

		b := RobustBounds(values)
		assert.Less(t, b.Max, 1.1)
		assert.Greater(t, b.Min, 0.9)
		assert.InDelta(t, 1.0, b.Median, 0.002)
	})

	t.Run("small sets use the full range", func(t *testing.T) {
		b := RobustBounds([]float64{0.9, 1.0, 1.1})
		assert.Less(t, b.Min, 0.9)
		assert.Greater(t, b.Max, 1.1)
		assert.Equal(t, 1.0, b.Median)
	})

	t.Run("flat curve keeps the minimum span", func(t *testing.T) {
		values := make([]float64, 50)
		for i := range values {
			values[i] = 1
		}
		b := RobustBounds(values)
		assert.GreaterOrEqual(t, b.Span(), minimumFluxSpan)
		assert.Less(t, b.Min, 1.0)
		assert.Greater(t, b.Max, 1.0)
	})

	t.Run("no finite values", func(t *testing.T) {
		b := RobustBounds([]float64{math.NaN()})
		assert.Equal(t, defaultFluxBounds(), b)
	})

	t.Run("extra values are included", func(t *testing.T) {
		values := make([]float64, 50)
		for i := range values {
			values[i] = 1
		}
		b := RobustBounds(values, 0.95, math.NaN())
		assert.Less(t, b.Min, 0.95)
	})
}

func TestNiceStep(t *testing.T) {
	testCases := []struct {
		span   float64
		target int
		want   float64
	}{
		{10, 5, 2},
		{1, 4, 0.5},
		{27, 10, 5},
		{0.01, 4, 0.005},
		{0, 4, 1},
		{5, 0, 1},
	}

	for _, tc := range testCases {
		assert.InDelta(t, tc.want, niceStep(tc.span, tc.target), 1e-12, "span %v target %d", tc.span, tc.target)
	}
}

func TestTicks(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, ticks(0, 1, 0.5))
	assert.Equal(t, []float64{2, 4}, ticks(1.5, 5.9, 2))
	assert.Empty(t, ticks(0.1, 0.2, 1))
}

func TestDecimals(t *testing.T) {
	assert.Equal(t, 0, decimals(5))
	assert.Equal(t, 1, decimals(0.5))
	assert.Equal(t, 2, decimals(0.01))
	assert.Equal(t, 3, decimals(0.002))
	assert.Equal(t, "1.000", formatFlux(1, 0.5))
	assert.Equal(t, "0.25", formatPhase(0.25, 0.05))
}

func TestSegmentPalette(t *testing.T) {
	palette := SegmentPalette(12)
	require.Len(t, palette, 12)

	seen := make(map[color.RGBA]bool)
	for _, c := range palette {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		assert.False(t, seen[rgba], "duplicate colour %v", rgba)
		seen[rgba] = true
	}

	assert.Empty(t, SegmentPalette(0))
}

func TestNewFigureRenderer(t *testing.T) {
	r, err := NewFigureRenderer(RenderConfig{})
	require.NoError(t, err)
	assert.Equal(t, defaultWidth, r.config.Width)
	assert.Equal(t, defaultLeftBorder, r.config.BorderConfig.Left)

	_, err = NewFigureRenderer(RenderConfig{Width: 20})
	assert.Error(t, err)
}

func TestFigureRenderer_Render(t *testing.T) {
	res := searchTransitTarget(t)
	fig := NewFigureData(res)

	assert.Equal(t, "TIC9", fig.Target)
	assert.Len(t, fig.Segments, 2)
	assert.Equal(t, res.Periodogram.Len(), len(fig.Periods))
	assert.True(t, fig.Complete)
	assert.Less(t, fig.FoldBounds.Min, 0.995)

	r, err := NewFigureRenderer(RenderConfig{})
	require.NoError(t, err)

	img, err := r.Render(fig)
	require.NoError(t, err)

	b := r.config.BorderConfig
	slot := b.Top + r.config.PanelHeight + b.Bottom
	assert.Equal(t, b.Left+r.config.Width+b.Right, img.Bounds().Dx())
	assert.Equal(t, 3*slot+2*r.config.PanelGap+r.config.InfoBar, img.Bounds().Dy())

	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, img.RGBAAt(0, 0))

	panelArea := func(i int) image.Rectangle {
		top := i*(slot+r.config.PanelGap) + b.Top
		return image.Rect(b.Left, top, b.Left+r.config.Width, top+r.config.PanelHeight)
	}
	assert.True(t, contains(img, panelArea(0), trendColor), "trend is drawn")
	assert.True(t, contains(img, panelArea(0), segmentColor(1)), "second segment is drawn")
	assert.True(t, contains(img, panelArea(1), powerColor), "periodogram is drawn")
	assert.True(t, contains(img, panelArea(2), binnedColor), "binned curve is drawn")
	assert.False(t, contains(img, panelArea(2), trendColor), "trend stays in its panel")

	legendRow := image.Rect(b.Left, panelArea(0).Max.Y, b.Left+r.config.Width, panelArea(0).Max.Y+b.Bottom)
	assert.True(t, contains(img, legendRow, segmentColor(0)), "first segment swatch")
	assert.True(t, contains(img, legendRow, segmentColor(1)), "second segment swatch")
	assert.True(t, contains(img, legendRow, trendColor), "trend swatch")
}

func TestLegendEntries(t *testing.T) {
	fig := &FigureData{Segments: []lightcurve.SegmentView{
		{Time: []float64{0}, Trend: []float64{1}},
		{Empty: true},
		{Time: []float64{1}, Trend: []float64{1}},
	}}

	entries := legendEntries(fig)
	require.Len(t, entries, 3)
	assert.Equal(t, "LC 1", entries[0].label)
	assert.Equal(t, segmentColor(0), entries[0].color)
	assert.Equal(t, "LC 3", entries[1].label)
	assert.Equal(t, segmentColor(2), entries[1].color)
	assert.Equal(t, "Trend", entries[2].label)
	assert.Equal(t, trendColor, entries[2].color)

	fig.Segments[0].Trend = nil
	fig.Segments[2].Trend = nil
	entries = legendEntries(fig)
	require.Len(t, entries, 2)
	assert.Equal(t, "LC 3", entries[1].label)

	assert.Empty(t, legendEntries(&FigureData{}))
}

func contains(img *image.RGBA, area image.Rectangle, c color.Color) bool {
	want := color.RGBAModel.Convert(c).(color.RGBA)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if img.RGBAAt(x, y) == want {
				return true
			}
		}
	}
	return false
}
