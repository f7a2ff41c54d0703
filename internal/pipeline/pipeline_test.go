package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roman-kulish/transit-search/internal/config"
	"github.com/roman-kulish/transit-search/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func csvFile(lines ...string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(strings.Join(lines, "\n") + "\n")}
}

// countingFS records how many files were opened.
type countingFS struct {
	fs.FS
	opened atomic.Int32
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opened.Add(1)
	return c.FS.Open(name)
}

func smallConfig() config.Config {
	c := config.Default()
	c.MinWindowPoints = 1
	c.PeriodMin = 0.5
	c.PeriodMax = 3
	c.GridSize = 6
	c.PhaseBins = 10
	c.Workers = 2
	return c
}

func twoSegmentFS() fstest.MapFS {
	return fstest.MapFS{
		"TIC42/s01/tess_s01_a_fast-lc.csv": csvFile(
			"TIME,PDCSAP_FLUX,QUALITY",
			"0,10,0",
			"1,10,0",
			"2,10,0",
		),
		"TIC42/s02/tess_s02_a_fast-lc.csv": csvFile(
			"TIME,PDCSAP_FLUX,QUALITY",
			"3,20,0",
			"4,0,1",
			"5,20,0",
		),
		"TIC42/s02/tess_s02_slow-lc.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "9,1,0"),
	}
}

func TestTargetName(t *testing.T) {
	assert.Equal(t, "TIC123", TargetName("123"))
	assert.Equal(t, "TIC123", TargetName("TIC123"))
	assert.Equal(t, "TIC123", TargetName("tic123"))
	assert.Equal(t, "TIC7", TargetName(" 7 "))
}

func TestSearch_TwoSegmentScenario(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)

	p, err := New(smallConfig(), twoSegmentFS(), WithMetrics(m))
	require.NoError(t, err)

	res, err := p.Search(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "TIC42", res.Target)
	assert.Equal(t, []string{"TIC42/s02/tess_s02_slow-lc.csv"}, res.Report.Skipped)
	assert.Equal(t, 2, res.Report.Loaded)
	assert.Zero(t, res.Report.Failed())

	series := res.Series
	require.Equal(t, 5, series.Len())
	assert.Equal(t, []float64{0, 1, 2, 3, 5}, series.Time)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, series.Flux)

	for _, f := range res.Detrended.Flattened.Flux {
		assert.InDelta(t, 1.0, f, 1e-12)
	}

	assert.True(t, res.Complete())
	assert.Equal(t, 6, res.Periodogram.Len())
	for _, power := range res.Periodogram.Power {
		assert.Less(t, power, 1e-20)
	}
	assert.Equal(t, 0, res.Best.Index)

	require.Len(t, res.Binned.Bins, 10)
	var members int
	for _, b := range res.Binned.Bins {
		members += b.Count
	}
	assert.Equal(t, 5, members)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesSkipped))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Samples))
}

func TestSearch_RecoversInjectedTransit(t *testing.T) {
	const (
		period   = 3.3
		epoch    = 1.25
		duration = 0.08
		depth    = 0.01
	)

	segment := func(from, to int) *fstest.MapFile {
		lines := []string{"TIME,PDCSAP_FLUX,QUALITY"}
		for i := from; i < to; i++ {
			tm := float64(i) * 0.01
			flux := 1500.0
			phase := math.Mod(tm-epoch+period/2, period) - period/2
			if math.Abs(phase) < duration/2 {
				flux *= 1 - depth
			}
			lines = append(lines, fmt.Sprintf("%.2f,%.6f,0", tm, flux))
		}
		return csvFile(lines...)
	}

	fsys := fstest.MapFS{
		"TIC9/a_fast_1.csv": segment(0, 1300),
		"TIC9/a_fast_2.csv": segment(1400, 2700),
	}

	cfg := config.Default()
	cfg.PeriodMin = 1
	cfg.PeriodMax = 10.9
	cfg.GridSize = 100
	cfg.TransitDuration = duration

	p, err := New(cfg, fsys)
	require.NoError(t, err)

	res, err := p.Search(context.Background(), "TIC9")
	require.NoError(t, err)

	assert.InDelta(t, period, res.Best.Period, 1e-9)
	assert.InDelta(t, depth, res.Best.Depth, 0.003)

	require.Len(t, res.Binned.Bins, cfg.PhaseBins)
	lowest := math.Inf(1)
	for _, b := range res.Binned.Bins {
		if b.Flux != nil {
			lowest = math.Min(lowest, *b.Flux)
		}
	}
	assert.Less(t, lowest, 0.995)
}

func TestNew_InvalidConfigurationDoesNoWork(t *testing.T) {
	cfg := smallConfig()
	cfg.PeriodMin = 5
	cfg.PeriodMax = 1

	fsys := &countingFS{FS: twoSegmentFS()}
	p, err := New(cfg, fsys)

	assert.Nil(t, p)
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
	assert.Zero(t, fsys.opened.Load())
}

func TestSearch_EmptyInput(t *testing.T) {
	testCases := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "no matching files",
			fsys: fstest.MapFS{"TIC1/slow.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "0,1,0")},
		},
		{
			name: "every sample flagged",
			fsys: fstest.MapFS{"TIC1/a_fast.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "0,1,1", "1,1,4")},
		},
		{
			name: "only unreadable files",
			fsys: fstest.MapFS{"TIC1/a_fast.csv": csvFile("TIME,QUALITY", "0,0")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(smallConfig(), tc.fsys)
			require.NoError(t, err)

			res, err := p.Search(context.Background(), "1")
			assert.ErrorIs(t, err, ErrEmptyInput)
			require.NotNil(t, res)
			assert.Nil(t, res.Periodogram)
		})
	}
}

func TestRun_UndeterminedTrend(t *testing.T) {
	fsys := fstest.MapFS{
		"a_fast.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "0,1,0", "1,1,0", "2,1,0"),
	}

	cfg := smallConfig()
	cfg.MinWindowPoints = 3

	p, err := New(cfg, fsys)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "TIC5", []string{"a_fast.csv"})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSearch_MissingTarget(t *testing.T) {
	p, err := New(smallConfig(), fstest.MapFS{})
	require.NoError(t, err)

	_, err = p.Search(context.Background(), "404")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyInput))
}

func TestRun_Cancelled(t *testing.T) {
	p, err := New(smallConfig(), twoSegmentFS())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, "TIC42", []string{"TIC42/s01/tess_s01_a_fast-lc.csv"})
	assert.ErrorIs(t, err, context.Canceled)
}
