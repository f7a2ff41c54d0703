package lightcurve

import (
	"math"
	"sort"
)

// DisplayGap is the spacing inserted between consecutive segments when they
// are laid out side by side for display.
const DisplayGap = 0.5

// Stitch concatenates segments in the given order and sorts the result by
// time. Segment boundaries are recorded before sorting so every source
// segment can still be addressed after the permutation.
func Stitch(segments []Segment) *StitchedSeries {
	var total int
	for _, seg := range segments {
		total += seg.Len()
	}

	series := &StitchedSeries{
		Time:     make([]float64, 0, total),
		Flux:     make([]float64, 0, total),
		Segments: make([]Range, len(segments)),
		Sources:  make([]string, len(segments)),
	}

	concatTime := make([]float64, 0, total)
	concatFlux := make([]float64, 0, total)
	for i, seg := range segments {
		start := len(concatTime)
		concatTime = append(concatTime, seg.Time...)
		concatFlux = append(concatFlux, seg.Flux...)
		series.Segments[i] = Range{Start: start, End: len(concatTime)}
		series.Sources[i] = seg.Source
	}

	order := make([]int, total)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return concatTime[order[a]] < concatTime[order[b]]
	})

	for _, idx := range order {
		series.Time = append(series.Time, concatTime[idx])
		series.Flux = append(series.Flux, concatFlux[idx])
	}
	series.Order = order

	return series
}

// SegmentView is one source segment projected out of a stitched series,
// in its original sample order, together with the matching trend values.
type SegmentView struct {
	Index  int
	Source string
	Time   []float64
	Flux   []float64
	Trend  []float64 // nil when no trend was supplied
	Offset float64   // Display offset to subtract from Time
	Empty  bool
}

// View returns the samples of segment i. trend may be nil; when given it
// must be co-indexed with the series.
func (s *StitchedSeries) View(i int, trend TrendModel) SegmentView {
	return s.view(i, trend, s.Position())
}

// view is View with the inverse sort permutation supplied by the caller.
func (s *StitchedSeries) view(i int, trend TrendModel, pos []int) SegmentView {
	r := s.Segments[i]
	view := SegmentView{
		Index:  i,
		Source: s.Sources[i],
		Empty:  r.IsEmpty(),
	}
	if view.Empty {
		return view
	}

	view.Time = make([]float64, 0, r.Len())
	view.Flux = make([]float64, 0, r.Len())
	if trend != nil {
		view.Trend = make([]float64, 0, r.Len())
	}
	for concat := r.Start; concat < r.End; concat++ {
		k := pos[concat]
		view.Time = append(view.Time, s.Time[k])
		view.Flux = append(view.Flux, s.Flux[k])
		if trend != nil {
			view.Trend = append(view.Trend, trend[k])
		}
	}
	return view
}

// DisplayLayout returns a view of every segment with a display offset that
// places segments one after another, separated by DisplayGap, regardless of
// the real time gaps between them. Empty segments are returned with Empty
// set and take no room in the layout.
func (s *StitchedSeries) DisplayLayout(trend TrendModel) []SegmentView {
	views := make([]SegmentView, len(s.Segments))
	pos := s.Position()

	var cursor float64
	var placed bool
	for i := range s.Segments {
		view := s.view(i, trend, pos)
		if view.Empty {
			views[i] = view
			continue
		}

		lo, hi := bounds(view.Time)
		if !placed {
			view.Offset = lo
			cursor = hi - lo
			placed = true
		} else {
			cursor += DisplayGap
			view.Offset = lo - cursor
			cursor += hi - lo
		}
		views[i] = view
	}
	return views
}

// bounds returns the finite minimum and maximum of values. Callers must not
// pass an empty slice.
func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
