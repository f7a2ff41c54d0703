package app

import (
	"image"
	"image/color"
	"math"
)

// panel maps data coordinates onto a rectangle of the figure.
type panel struct {
	area       image.Rectangle
	xMin, xMax float64
	yMin, yMax float64
}

func newPanel(area image.Rectangle, xMin, xMax, yMin, yMax float64) *panel {
	if !(xMax > xMin) {
		xMin, xMax = xMin-0.5, xMin+0.5
	}
	if !(yMax > yMin) {
		yMin, yMax = yMin-0.5, yMin+0.5
	}
	return &panel{area: area, xMin: xMin, xMax: xMax, yMin: yMin, yMax: yMax}
}

// pixel converts a data point to image coordinates. ok is false when the
// point is outside the panel or not finite.
func (p *panel) pixel(x, y float64) (px, py int, ok bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, false
	}
	fx := (x - p.xMin) / (p.xMax - p.xMin)
	fy := (y - p.yMin) / (p.yMax - p.yMin)

	px = p.area.Min.X + int(math.Round(fx*float64(p.area.Dx()-1)))
	py = p.area.Max.Y - 1 - int(math.Round(fy*float64(p.area.Dy()-1)))
	return px, py, image.Pt(px, py).In(p.area)
}

// xPixel returns the image column of x, ignoring y.
func (p *panel) xPixel(x float64) (int, bool) {
	px, _, ok := p.pixel(x, (p.yMin+p.yMax)/2)
	return px, ok
}

// yPixel returns the image row of y, ignoring x.
func (p *panel) yPixel(y float64) (int, bool) {
	_, py, ok := p.pixel((p.xMin+p.xMax)/2, y)
	return py, ok
}

// dot draws a filled square of the given radius centred on a data point.
func (p *panel) dot(img *image.RGBA, x, y float64, radius int, c color.Color) {
	px, py, ok := p.pixel(x, y)
	if !ok {
		return
	}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			p.set(img, px+dx, py+dy, c)
		}
	}
}

// diamond draws a filled diamond marker centred on a data point.
func (p *panel) diamond(img *image.RGBA, x, y float64, radius int, c color.Color) {
	px, py, ok := p.pixel(x, y)
	if !ok {
		return
	}
	for dy := -radius; dy <= radius; dy++ {
		w := radius - abs(dy)
		for dx := -w; dx <= w; dx++ {
			p.set(img, px+dx, py+dy, c)
		}
	}
}

// polyline connects consecutive finite points. A NaN breaks the line.
func (p *panel) polyline(img *image.RGBA, xs, ys []float64, c color.Color) {
	var prevX, prevY float64
	havePrev := false
	for i := range xs {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			havePrev = false
			continue
		}
		if havePrev {
			p.segment(img, prevX, prevY, x, y, c)
		}
		prevX, prevY, havePrev = x, y, true
	}
}

// segment draws a straight line between two data points, clamped to the
// panel.
func (p *panel) segment(img *image.RGBA, x0, y0, x1, y1 float64, c color.Color) {
	ax, ay := p.clampedPixel(x0, y0)
	bx, by := p.clampedPixel(x1, y1)
	line(img, ax, ay, bx, by, p.area, c)
}

// vline draws a dashed vertical line at x across the panel.
func (p *panel) vline(img *image.RGBA, x float64, dash int, c color.Color) {
	px, ok := p.xPixel(x)
	if !ok {
		return
	}
	for y := p.area.Min.Y; y < p.area.Max.Y; y++ {
		if dash > 0 && ((y-p.area.Min.Y)/dash)%2 == 1 {
			continue
		}
		img.Set(px, y, c)
	}
}

// hline draws a solid horizontal line at y across the panel.
func (p *panel) hline(img *image.RGBA, y float64, c color.Color) {
	py, ok := p.yPixel(y)
	if !ok {
		return
	}
	for x := p.area.Min.X; x < p.area.Max.X; x++ {
		img.Set(x, py, c)
	}
}

// frame outlines the panel area.
func (p *panel) frame(img *image.RGBA, c color.Color) {
	r := p.area
	for x := r.Min.X - 1; x <= r.Max.X; x++ {
		img.Set(x, r.Min.Y-1, c)
		img.Set(x, r.Max.Y, c)
	}
	for y := r.Min.Y - 1; y <= r.Max.Y; y++ {
		img.Set(r.Min.X-1, y, c)
		img.Set(r.Max.X, y, c)
	}
}

func (p *panel) set(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(p.area) {
		img.Set(x, y, c)
	}
}

func (p *panel) clampedPixel(x, y float64) (int, int) {
	x = math.Max(p.xMin, math.Min(x, p.xMax))
	y = math.Max(p.yMin, math.Min(y, p.yMax))
	px, py, _ := p.pixel(x, y)
	return px, py
}

// line draws a Bresenham line, clipped to clip.
func line(img *image.RGBA, x0, y0, x1, y1 int, clip image.Rectangle, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		if image.Pt(x0, y0).In(clip) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// niceStep returns a 1, 2 or 5 times power of ten step that divides span
// into roughly target intervals.
func niceStep(span float64, target int) float64 {
	if !(span > 0) || target <= 0 {
		return 1
	}
	rough := span / float64(target)
	mag := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * mag; step >= rough {
			return step
		}
	}
	return 10 * mag
}

// ticks returns the multiples of step within [lo, hi].
func ticks(lo, hi, step float64) []float64 {
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		// snap accumulated error so labels print cleanly
		out = append(out, math.Round(v/step)*step)
	}
	return out
}
