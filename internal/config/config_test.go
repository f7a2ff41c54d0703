package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "TESSData", c.DataDir)
	assert.Equal(t, "a_fast", c.CadenceTag)
	assert.Equal(t, "PDCSAP_FLUX", c.FluxColumn)
	assert.Equal(t, 0.35, c.WindowLength)
	assert.Equal(t, 0.5, c.BreakTolerance)
	assert.Equal(t, 0.25, c.PeriodMin)
	assert.Equal(t, 30.0, c.PeriodMax)
	assert.Equal(t, 1000, c.GridSize)
	assert.Equal(t, 0.2, c.TransitDuration)
	assert.Equal(t, 300, c.PhaseBins)
	assert.Equal(t, FormatPNG, c.Format)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted period bounds", func(c *Config) { c.PeriodMin, c.PeriodMax = 5, 1 }},
		{"equal period bounds", func(c *Config) { c.PeriodMin, c.PeriodMax = 2, 2 }},
		{"zero period min", func(c *Config) { c.PeriodMin = 0 }},
		{"zero grid", func(c *Config) { c.GridSize = 0 }},
		{"zero duration", func(c *Config) { c.TransitDuration = 0 }},
		{"duration above period min", func(c *Config) { c.TransitDuration = 0.3 }},
		{"zero oversample", func(c *Config) { c.Oversample = 0 }},
		{"negative window", func(c *Config) { c.WindowLength = -0.1 }},
		{"zero break tolerance", func(c *Config) { c.BreakTolerance = 0 }},
		{"zero min points", func(c *Config) { c.MinWindowPoints = 0 }},
		{"zero phase bins", func(c *Config) { c.PhaseBins = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative time budget", func(c *Config) { c.TimeBudget = -time.Second }},
		{"unknown format", func(c *Config) { c.Format = "gif" }},
		{"empty flux column", func(c *Config) { c.FluxColumn = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfiguration)
		})
	}

	t.Run("format is case insensitive", func(t *testing.T) {
		c := Default()
		c.Format = "JPEG"
		assert.NoError(t, c.Validate())
	})
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), *c)
}

func TestLoad_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "transit.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
period_min: 0.5
period_max: 12
grid_size: 200
time_budget: 90s
format: jpeg
`), 0o600))

	t.Setenv("TRANSIT_GRID_SIZE", "300")

	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--period-max=15"}))

	c, err := Load(v, file)
	require.NoError(t, err)

	assert.Equal(t, 0.5, c.PeriodMin)           // file
	assert.Equal(t, 15.0, c.PeriodMax)          // flag over file
	assert.Equal(t, 300, c.GridSize)            // env over file
	assert.Equal(t, 90*time.Second, c.TimeBudget)
	assert.Equal(t, FormatJPEG, c.Format)
	assert.Equal(t, Default().PhaseBins, c.PhaseBins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	c := Default()
	c.TimeBudget = 2 * time.Minute

	var buf bytes.Buffer
	require.NoError(t, c.Dump(&buf))

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "2m0s", out["time_budget"])
	assert.Equal(t, "TESSData", out["data_dir"])
	assert.Equal(t, 1000, out["grid_size"])
	assert.Equal(t, 0.35, out["window_length"])
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "period-min", FlagName("period_min"))
	assert.Equal(t, "db", FlagName("db"))
}
