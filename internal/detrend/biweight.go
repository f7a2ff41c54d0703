package detrend

import (
	"math"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

// biweight estimates a robust location with Tukey's biweight, starting at
// the median and iterating until the relative change drops below tol.
// values is used as scratch space and reordered; dev must have the same
// length. values must contain finite numbers only.
func biweight(values, dev []float64, cval, tol float64, maxIter int) float64 {
	location := lightcurve.MedianInPlace(values)

	for iter := 0; iter < maxIter; iter++ {
		for i, v := range values {
			dev[i] = math.Abs(v - location)
		}
		mad := lightcurve.MedianInPlace(dev)
		if mad == 0 {
			return location
		}

		limit := cval * mad
		var sum, weights float64
		for _, v := range values {
			u := (v - location) / limit
			if math.Abs(u) >= 1 {
				continue
			}
			w := (1 - u*u) * (1 - u*u)
			sum += w * v
			weights += w
		}
		if weights == 0 {
			return location
		}

		next := sum / weights
		delta := math.Abs(next - location)
		location = next
		if delta <= tol*math.Abs(location) {
			break
		}
	}

	return location
}
