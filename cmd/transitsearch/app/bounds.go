package app

import (
	"math"

	"github.com/roman-kulish/transit-search/internal/lightcurve"
)

const (
	defaultMinFlux = 0.99
	defaultMaxFlux = 1.01

	// minimumSampleCount is the smallest set for which the 5th and 95th
	// percentiles are distinct samples.
	minimumSampleCount = 20

	// minimumFluxSpan keeps a nearly flat curve from filling the panel
	// with noise.
	minimumFluxSpan = 0.002
)

// FluxBounds is the vertical range of a flux panel.
type FluxBounds struct {
	Min    float64 // Lower edge, 5th percentile minus margin
	Max    float64 // Upper edge, 95th percentile plus margin
	Median float64
}

func defaultFluxBounds() FluxBounds {
	return FluxBounds{
		Min:    defaultMinFlux,
		Max:    defaultMaxFlux,
		Median: (defaultMinFlux + defaultMaxFlux) / 2,
	}
}

// Span returns Max - Min.
func (b FluxBounds) Span() float64 {
	return b.Max - b.Min
}

// RobustBounds returns bounds from the 5th and 95th percentiles of the
// finite values so a few outliers do not flatten the rest of the panel.
// Extra values, such as the depth of a binned transit, are always
// included.
func RobustBounds(values []float64, extra ...float64) FluxBounds {
	finite := lightcurve.Finite(values)
	if len(finite) < minimumSampleCount {
		if len(finite) == 0 {
			return widen(defaultFluxBounds(), extra)
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range finite {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		return widen(pad(lo, hi, lightcurve.Median(finite)), extra)
	}

	lo := lightcurve.Percentile(finite, 5)
	hi := lightcurve.Percentile(finite, 95)
	return widen(pad(lo, hi, lightcurve.Median(finite)), extra)
}

// pad enforces the minimum span around the centre and adds a 10% margin.
func pad(lo, hi, median float64) FluxBounds {
	if hi-lo < minimumFluxSpan {
		center := (hi + lo) / 2
		lo = center - minimumFluxSpan/2
		hi = center + minimumFluxSpan/2
	}

	margin := (hi - lo) / 10
	return FluxBounds{
		Min:    lo - margin,
		Max:    hi + margin,
		Median: median,
	}
}

func widen(b FluxBounds, extra []float64) FluxBounds {
	for _, v := range extra {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		margin := b.Span() / 20
		if v-margin < b.Min {
			b.Min = v - margin
		}
		if v+margin > b.Max {
			b.Max = v + margin
		}
	}
	return b
}
