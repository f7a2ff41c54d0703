package segment

import (
	"fmt"
	"math"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

// Filter drops unusable samples and normalizes the remaining flux by its
// median. A sample is unusable when its time or flux is NaN or its quality
// flag is non-zero. When no sample survives an empty segment is returned.
func Filter(source string, cols *Columns) (lightcurve.Segment, error) {
	seg := lightcurve.Segment{Source: source}
	if err := cols.validate(); err != nil {
		return seg, err
	}

	for i := range cols.Time {
		if cols.Quality[i] != 0 || math.IsNaN(cols.Flux[i]) || math.IsNaN(cols.Time[i]) {
			continue
		}
		seg.Time = append(seg.Time, cols.Time[i])
		seg.Flux = append(seg.Flux, cols.Flux[i])
	}

	if seg.IsEmpty() {
		return seg, nil
	}

	median := lightcurve.Median(seg.Flux)
	if !(median > 0) || math.IsInf(median, 0) {
		return lightcurve.Segment{Source: source}, fmt.Errorf("invalid flux scale: median %v", median)
	}

	for i := range seg.Flux {
		seg.Flux[i] /= median
	}
	return seg, nil
}
