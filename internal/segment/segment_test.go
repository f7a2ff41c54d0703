package segment

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func csvFile(lines ...string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(strings.Join(lines, "\n") + "\n")}
}

func TestFilter_DropsFlaggedAndNaNSamples(t *testing.T) {
	cols := &Columns{
		Time:    []float64{3, 4, 5, 6, math.NaN()},
		Flux:    []float64{20, 0, 20, math.NaN(), 20},
		Quality: []int32{0, 1, 0, 0, 0},
	}

	seg, err := Filter("b", cols)
	require.NoError(t, err)

	assert.Equal(t, "b", seg.Source)
	assert.Equal(t, []float64{3, 5}, seg.Time)
	assert.Equal(t, []float64{1, 1}, seg.Flux)
}

func TestFilter_ConstantFluxNormalizesToOne(t *testing.T) {
	for _, c := range []float64{1e-3, 10, 20, 12345.678} {
		cols := &Columns{
			Time:    []float64{0, 1, 2, 3},
			Flux:    []float64{c, c, c, c},
			Quality: []int32{0, 0, 0, 0},
		}

		seg, err := Filter("const", cols)
		require.NoError(t, err)
		for _, f := range seg.Flux {
			assert.Equal(t, 1.0, f, "constant %v", c)
		}
	}
}

func TestFilter_NoSurvivors(t *testing.T) {
	cols := &Columns{
		Time:    []float64{0, 1},
		Flux:    []float64{math.NaN(), 5},
		Quality: []int32{0, 4},
	}

	seg, err := Filter("empty", cols)
	require.NoError(t, err)
	assert.True(t, seg.IsEmpty())
	assert.Equal(t, "empty", seg.Source)
}

func TestFilter_InvalidScale(t *testing.T) {
	cols := &Columns{
		Time:    []float64{0, 1, 2},
		Flux:    []float64{-1, -2, -3},
		Quality: []int32{0, 0, 0},
	}

	_, err := Filter("negative", cols)
	assert.Error(t, err)
}

func TestCSVDecoder(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		data := strings.Join([]string{
			"# exported light curve",
			"TIME,SAP_FLUX,PDCSAP_FLUX,QUALITY",
			"1.0,9.0,10.0,0",
			"2.0,9.5,,0",
			"3.0,9.1,nan,128",
		}, "\n")

		cols, err := NewCSVDecoder("").Decode(strings.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, 3, cols.Len())
		assert.Equal(t, []float64{1, 2, 3}, cols.Time)
		assert.Equal(t, 10.0, cols.Flux[0])
		assert.True(t, math.IsNaN(cols.Flux[1]))
		assert.True(t, math.IsNaN(cols.Flux[2]))
		assert.Equal(t, []int32{0, 0, 128}, cols.Quality)
	})

	t.Run("alternate flux column", func(t *testing.T) {
		data := "TIME,SAP_FLUX,QUALITY\n1,9,0\n"
		cols, err := NewCSVDecoder(ColumnSAPFlux).Decode(strings.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []float64{9}, cols.Flux)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := NewCSVDecoder("").Decode(strings.NewReader("TIME,QUALITY\n1,0\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("bad number", func(t *testing.T) {
		_, err := NewCSVDecoder("").Decode(strings.NewReader("TIME,PDCSAP_FLUX,QUALITY\nabc,1,0\n"))
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewCSVDecoder("").Decode(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"s01/tess_s01_a_fast-lc.fits": {Data: []byte("x")},
		"s01/tess_s01-lc.fits":        {Data: []byte("x")},
		"s02/deep/b_a_fast.csv":       {Data: []byte("x")},
		"notes.txt":                   {Data: []byte("x")},
		"a_fast_readme.md":            {Data: []byte("x")},
	}

	d, err := Discover(fsys, ".", DefaultCadenceTag, DefaultDecoders(""))
	require.NoError(t, err)

	assert.Equal(t, []string{"s01/tess_s01_a_fast-lc.fits", "s02/deep/b_a_fast.csv"}, d.Paths)
	assert.Equal(t, []string{"s01/tess_s01-lc.fits"}, d.Skipped)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(fstest.MapFS{}, "TIC1", DefaultCadenceTag, DefaultDecoders(""))
	assert.Error(t, err)
}

type panicDecoder struct{}

func (panicDecoder) Decode(io.Reader) (*Columns, error) {
	panic("corrupt header")
}

func TestLoader_TwoSegmentScenario(t *testing.T) {
	fsys := fstest.MapFS{
		"a_fast_A.csv": csvFile(
			"TIME,PDCSAP_FLUX,QUALITY",
			"0,10,0",
			"1,10,0",
			"2,10,0",
		),
		"a_fast_B.csv": csvFile(
			"TIME,PDCSAP_FLUX,QUALITY",
			"3,20,0",
			"4,0,1",
			"5,20,0",
		),
	}

	loader := NewLoader(fsys, WithWorkers(2))
	segments, report, err := loader.Load(context.Background(), []string{"a_fast_A.csv", "a_fast_B.csv"})
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, []float64{0, 1, 2}, segments[0].Time)
	assert.Equal(t, []float64{1, 1, 1}, segments[0].Flux)
	assert.Equal(t, []float64{3, 5}, segments[1].Time)
	assert.Equal(t, []float64{1, 1}, segments[1].Flux)

	assert.Equal(t, 2, report.Considered)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 5, report.Samples)
	assert.Zero(t, report.Failed())
}

func TestLoader_BadFilesDoNotAbortBatch(t *testing.T) {
	fsys := fstest.MapFS{
		"1_a_fast.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "0,5,0", "1,5,0"),
		"2_a_fast.csv": csvFile("TIME,QUALITY", "0,0"),
		"3_a_fast.bin": {Data: []byte{0x00}},
		"4_a_fast.pan": {Data: []byte{0x00}},
		"5_a_fast.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "7,1,1"),
		"6_a_fast.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "8,3,0"),
	}

	decoders := DefaultDecoders("")
	decoders[".pan"] = panicDecoder{}

	loader := NewLoader(fsys, WithDecoders(decoders), WithWorkers(3))
	paths := []string{"1_a_fast.csv", "2_a_fast.csv", "3_a_fast.bin", "4_a_fast.pan", "missing_a_fast.csv", "5_a_fast.csv", "6_a_fast.csv"}

	segments, report, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, segments, 3)
	assert.Equal(t, "1_a_fast.csv", segments[0].Source)
	assert.True(t, segments[1].IsEmpty())
	assert.Equal(t, "6_a_fast.csv", segments[2].Source)

	assert.Equal(t, 7, report.Considered)
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 1, report.Empty)
	require.Equal(t, 4, report.Failed())

	kinds := map[string]FailureKind{}
	for _, f := range report.Failures {
		assert.ErrorIs(t, f, ErrUnreadableSegment, f.Path)
		kinds[f.Path] = f.Kind
	}
	assert.Equal(t, map[string]FailureKind{
		"2_a_fast.csv":       FailureDecode,
		"3_a_fast.bin":       FailureNoDecoder,
		"4_a_fast.pan":       FailureDecode,
		"missing_a_fast.csv": FailureOpen,
	}, kinds)

	assert.ErrorIs(t, report.Failures[0], ErrMissingColumn)
}

func TestLoader_Cancelled(t *testing.T) {
	fsys := fstest.MapFS{
		"a_fast.csv": csvFile("TIME,PDCSAP_FLUX,QUALITY", "0,5,0"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewLoader(fsys).Load(ctx, []string{"a_fast.csv"})
	assert.True(t, errors.Is(err, context.Canceled))
}
