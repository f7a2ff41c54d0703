package fold

import (
	"fmt"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

// Bin is one equal-width phase interval [Lo, Hi). Phase and Flux are nil
// when no sample falls into the bin.
type Bin struct {
	Lo, Hi float64
	Phase  *float64 // Mean phase of the members
	Flux   *float64 // Median flux of the members
	Count  int
}

// IsEmpty reports whether the bin has no members.
func (b Bin) IsEmpty() bool {
	return b.Count == 0
}

// BinnedCurve is a folded light curve reduced to equal-width phase bins.
type BinnedCurve struct {
	Bins []Bin
}

// Filled returns the number of non-empty bins.
func (c *BinnedCurve) Filled() int {
	var n int
	for _, b := range c.Bins {
		if !b.IsEmpty() {
			n++
		}
	}
	return n
}

// BinCurve splits [0, 1) into nbins equal intervals and summarises the
// samples of folded falling into each. The result always has nbins bins.
func BinCurve(folded *PhaseFoldedSeries, nbins int) (*BinnedCurve, error) {
	if nbins <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBins, nbins)
	}

	curve := BinnedCurve{Bins: make([]Bin, nbins)}
	width := 1 / float64(nbins)

	// folded is sorted by phase, so members of a bin are contiguous
	start := 0
	for b := range curve.Bins {
		bin := &curve.Bins[b]
		bin.Lo = float64(b) * width
		bin.Hi = float64(b+1) * width
		if b == nbins-1 {
			bin.Hi = 1
		}

		end := start
		for end < folded.Len() && (b == nbins-1 || index(folded.Phase[end], nbins) == b) {
			end++
		}
		if end == start {
			continue
		}

		phase := lightcurve.Mean(folded.Phase[start:end])
		flux := lightcurve.Median(folded.Flux[start:end])

		bin.Phase = &phase
		bin.Flux = &flux
		bin.Count = end - start
		start = end
	}
	return &curve, nil
}

func index(phase float64, nbins int) int {
	i := int(phase * float64(nbins))
	return min(max(i, 0), nbins-1)
}
