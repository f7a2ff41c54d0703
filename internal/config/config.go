// Package config defines the transit search settings and loads them from a
// YAML file, TRANSIT_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// ErrInvalidConfiguration is returned by Validate for unusable settings.
var ErrInvalidConfiguration = errors.New("invalid configuration")

var validFormats = []string{FormatPNG, FormatJPEG}

// Config holds every setting of a transit search run.
type Config struct {
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir"`
	CadenceTag string `mapstructure:"cadence_tag" yaml:"cadence_tag"`
	FluxColumn string `mapstructure:"flux_column" yaml:"flux_column"`

	WindowLength    float64 `mapstructure:"window_length" yaml:"window_length"`
	BreakTolerance  float64 `mapstructure:"break_tolerance" yaml:"break_tolerance"`
	MinWindowPoints int     `mapstructure:"min_window_points" yaml:"min_window_points"`

	PeriodMin       float64 `mapstructure:"period_min" yaml:"period_min"`
	PeriodMax       float64 `mapstructure:"period_max" yaml:"period_max"`
	GridSize        int     `mapstructure:"grid_size" yaml:"grid_size"`
	TransitDuration float64 `mapstructure:"transit_duration" yaml:"transit_duration"`
	Oversample      int     `mapstructure:"oversample" yaml:"oversample"`
	PhaseBins       int     `mapstructure:"phase_bins" yaml:"phase_bins"`

	Workers    int           `mapstructure:"workers" yaml:"workers"`
	TimeBudget time.Duration `mapstructure:"time_budget" yaml:"-"`

	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	Format      string `mapstructure:"format" yaml:"format"`
	DB          string `mapstructure:"db" yaml:"db"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		DataDir:         "TESSData",
		CadenceTag:      "a_fast",
		FluxColumn:      "PDCSAP_FLUX",
		WindowLength:    0.35,
		BreakTolerance:  0.5,
		MinWindowPoints: 3,
		PeriodMin:       0.25,
		PeriodMax:       30,
		GridSize:        1000,
		TransitDuration: 0.2,
		Oversample:      10,
		PhaseBins:       300,
		Workers:         runtime.NumCPU(),
		OutputDir:       "figures",
		Format:          FormatPNG,
		LogLevel:        "info",
	}
}

// Validate reports the first unusable setting as an error wrapping
// ErrInvalidConfiguration.
func (c *Config) Validate() error {
	var err error
	switch {
	case !positive(c.PeriodMin) || !positive(c.PeriodMax):
		err = fmt.Errorf("period bounds must be positive, got [%v, %v]", c.PeriodMin, c.PeriodMax)
	case c.PeriodMin >= c.PeriodMax:
		err = fmt.Errorf("period_min %v must be below period_max %v", c.PeriodMin, c.PeriodMax)
	case c.GridSize <= 0:
		err = fmt.Errorf("grid_size must be positive, got %d", c.GridSize)
	case !positive(c.TransitDuration):
		err = fmt.Errorf("transit_duration must be positive, got %v", c.TransitDuration)
	case c.TransitDuration >= c.PeriodMin:
		err = fmt.Errorf("transit_duration %v must be below period_min %v", c.TransitDuration, c.PeriodMin)
	case c.Oversample <= 0:
		err = fmt.Errorf("oversample must be positive, got %d", c.Oversample)
	case !positive(c.WindowLength):
		err = fmt.Errorf("window_length must be positive, got %v", c.WindowLength)
	case !positive(c.BreakTolerance):
		err = fmt.Errorf("break_tolerance must be positive, got %v", c.BreakTolerance)
	case c.MinWindowPoints <= 0:
		err = fmt.Errorf("min_window_points must be positive, got %d", c.MinWindowPoints)
	case c.PhaseBins <= 0:
		err = fmt.Errorf("phase_bins must be positive, got %d", c.PhaseBins)
	case c.Workers <= 0:
		err = fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.TimeBudget < 0:
		err = fmt.Errorf("time_budget must not be negative, got %s", c.TimeBudget)
	case !slices.Contains(validFormats, strings.ToLower(c.Format)):
		err = fmt.Errorf("unknown image format: %q", c.Format)
	case c.FluxColumn == "":
		err = errors.New("flux_column is required")
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

// Dump writes the configuration as YAML.
func (c Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return enc.Close()
}

// MarshalYAML renders the time budget in its human-readable form.
func (c Config) MarshalYAML() (any, error) {
	type plain Config
	return struct {
		plain      `yaml:",inline"`
		TimeBudget string `yaml:"time_budget"`
	}{plain(c), c.TimeBudget.String()}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
