package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart = 210.0
	hueStep  = 137.508 // golden angle

	segmentSaturation = 0.75
	segmentValue      = 0.80
)

var (
	backgroundColor = color.White
	axisColor       = color.Black
	gridColor       = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	trendColor      = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	powerColor      = color.RGBA{R: 0x1f, G: 0x3b, B: 0x73, A: 0xff}
	bestPeriodColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	foldedColor     = color.RGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}
	binnedColor     = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
)

// segmentColor returns the colour of the i-th segment. Hues advance by the
// golden angle so any number of segments gets distinct colours.
func segmentColor(i int) color.Color {
	hue := math.Mod(hueStart+float64(i)*hueStep, 360)
	return colorful.Hsv(hue, segmentSaturation, segmentValue)
}

// SegmentPalette returns one colour per segment.
func SegmentPalette(n int) []color.Color {
	palette := make([]color.Color, n)
	for i := range palette {
		palette[i] = segmentColor(i)
	}
	return palette
}
