package lightcurve

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Finite returns a copy of values without NaN and infinities.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Median returns the median of the finite values, or NaN if there are none.
// The input slice is not modified.
func Median(values []float64) float64 {
	return MedianInPlace(Finite(values))
}

// MedianInPlace is Median for callers that own values and allow it to be
// reordered. values must not contain NaN.
func MedianInPlace(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(values)

	// one middle element for odd n, the two middle ones for even n
	return stat.Mean(values[(n-1)/2:n/2+1], nil)
}

// Mean returns the arithmetic mean of the finite values, or NaN if there
// are none.
func Mean(values []float64) float64 {
	data := Finite(values)
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// Percentile returns the p-th percentile (0-100) of the finite values,
// interpolating the empirical distribution linearly, or NaN if there are
// none.
func Percentile(values []float64, p float64) float64 {
	data := Finite(values)
	if len(data) == 0 {
		return math.NaN()
	}
	sort.Float64s(data)

	q := min(max(p/100, 0), 1)
	return stat.Quantile(q, stat.LinInterp, data, nil)
}
