// Package metrics holds the Prometheus collectors of a transit search run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transit_search"

// Stage names used as the stage label of the duration histogram.
const (
	StageLoad    = "load"
	StageStitch  = "stitch"
	StageDetrend = "detrend"
	StageSearch  = "search"
	StageFold    = "fold"
	StageRender  = "render"
	StageStore   = "store"
)

// Metrics is the set of collectors for one run. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	FilesLoaded   prometheus.Counter
	FilesSkipped  prometheus.Counter
	FilesFailed   *prometheus.CounterVec
	Samples       prometheus.Gauge
	StageDuration *prometheus.HistogramVec
	BestPower     prometheus.Gauge
	BestPeriod    prometheus.Gauge
}

// New registers the run collectors on a fresh registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the run collectors on registry.
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		FilesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_loaded_total",
			Help:      "Segment files decoded successfully.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Files ignored during discovery because they are not of the requested cadence.",
		}),
		FilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Segment files that could not be read, partitioned by failure kind.",
		}, []string{"kind"}),
		Samples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "samples",
			Help:      "Samples in the stitched light curve.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		}, []string{"stage"}),
		BestPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_power",
			Help:      "Power of the best period.",
		}),
		BestPeriod: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_period_days",
			Help:      "Best period in days.",
		}),
	}

	collectors := []prometheus.Collector{
		m.FilesLoaded, m.FilesSkipped, m.FilesFailed, m.Samples,
		m.StageDuration, m.BestPower, m.BestPeriod,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register run metrics: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordFiles records the outcome of a load batch.
func (m *Metrics) RecordFiles(loaded, skipped int, failedKinds []string) {
	if m == nil {
		return
	}
	m.FilesLoaded.Add(float64(loaded))
	m.FilesSkipped.Add(float64(skipped))
	for _, kind := range failedKinds {
		m.FilesFailed.WithLabelValues(kind).Inc()
	}
}

// RecordSamples sets the stitched sample count.
func (m *Metrics) RecordSamples(n int) {
	if m == nil {
		return
	}
	m.Samples.Set(float64(n))
}

// RecordBest sets the best period and its power.
func (m *Metrics) RecordBest(period, power float64) {
	if m == nil {
		return
	}
	m.BestPeriod.Set(period)
	m.BestPower.Set(power)
}

// WriteFile writes the collected metrics in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
