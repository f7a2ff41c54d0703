package lightcurve

// Sample is a single brightness measurement as read from a source file.
type Sample struct {
	Time    float64 // Timestamp, same units across all segments of a target
	Flux    float64 // Raw (un-normalized) flux
	Quality int32   // Data quality flag, 0 means good
}

// Segment is the filtered, median-normalized content of one source file.
// A segment with no surviving samples is valid and has empty slices.
type Segment struct {
	Source string    // Identifier of the source file
	Time   []float64 // Sample times in file order
	Flux   []float64 // Flux divided by the median of the surviving samples
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int {
	return len(s.Time)
}

// IsEmpty reports whether the segment has no samples.
func (s Segment) IsEmpty() bool {
	return len(s.Time) == 0
}

// Range is a half-open [Start, End) index range.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty reports whether the range covers no indices.
func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// StitchedSeries is the time-sorted concatenation of all segments of a target.
type StitchedSeries struct {
	Time []float64 // Non-decreasing sample times
	Flux []float64 // Segment-wise normalized flux, co-indexed with Time

	// Segments holds the index range of every source segment in the
	// concatenated order, i.e. before sorting.
	Segments []Range

	// Order maps a sorted position to its index in the concatenated order.
	Order []int

	// Sources names the source of each entry in Segments.
	Sources []string
}

// Len returns the number of samples in the series.
func (s *StitchedSeries) Len() int {
	return len(s.Time)
}

// Position returns the inverse of Order: the sorted position of every
// concatenated index.
func (s *StitchedSeries) Position() []int {
	pos := make([]int, len(s.Order))
	for sorted, concat := range s.Order {
		pos[concat] = sorted
	}
	return pos
}

// TrendModel is the slowly varying baseline co-indexed with a StitchedSeries.
// Under-determined points hold NaN.
type TrendModel []float64

// FlattenedSeries is a StitchedSeries with flux divided by its trend.
type FlattenedSeries struct {
	Time []float64
	Flux []float64 // NaN where the trend is under-determined
}

// Len returns the number of samples in the series.
func (s *FlattenedSeries) Len() int {
	return len(s.Time)
}
