package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides, e.g. TRANSIT_PERIOD_MAX.
const EnvPrefix = "TRANSIT"

// keys lists every setting. Flags use the same names with dashes.
var keys = []string{
	"data_dir", "cadence_tag", "flux_column",
	"window_length", "break_tolerance", "min_window_points",
	"period_min", "period_max", "grid_size", "transit_duration", "oversample", "phase_bins",
	"workers", "time_budget",
	"output_dir", "format", "db", "metrics_file", "log_file", "log_level",
}

// FlagName returns the command line flag bound to a setting key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// NewViper returns a viper instance seeded with the defaults and reading
// TRANSIT_ prefixed environment variables.
func NewViper() *viper.Viper {
	v := viper.New()

	d := Default()
	defaults := map[string]any{
		"data_dir":          d.DataDir,
		"cadence_tag":       d.CadenceTag,
		"flux_column":       d.FluxColumn,
		"window_length":     d.WindowLength,
		"break_tolerance":   d.BreakTolerance,
		"min_window_points": d.MinWindowPoints,
		"period_min":        d.PeriodMin,
		"period_max":        d.PeriodMax,
		"grid_size":         d.GridSize,
		"transit_duration":  d.TransitDuration,
		"oversample":        d.Oversample,
		"phase_bins":        d.PhaseBins,
		"workers":           d.Workers,
		"time_budget":       d.TimeBudget,
		"output_dir":        d.OutputDir,
		"format":            d.Format,
		"db":                d.DB,
		"metrics_file":      d.MetricsFile,
		"log_file":          d.LogFile,
		"log_level":         d.LogLevel,
	}
	for _, key := range keys {
		v.SetDefault(key, defaults[key])
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterFlags defines one flag per setting on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagName("data_dir"), d.DataDir, "Root directory holding TIC<id> target directories")
	fs.String(FlagName("cadence_tag"), d.CadenceTag, "Substring a segment file name must contain")
	fs.String(FlagName("flux_column"), d.FluxColumn, "Flux column to read. [PDCSAP_FLUX, SAP_FLUX]")

	fs.Float64(FlagName("window_length"), d.WindowLength, "Biweight window length in days")
	fs.Float64(FlagName("break_tolerance"), d.BreakTolerance, "Gap in days that splits the detrending into chunks")
	fs.Int(FlagName("min_window_points"), d.MinWindowPoints, "Minimum samples for a trend estimate")

	fs.Float64(FlagName("period_min"), d.PeriodMin, "Shortest trial period in days")
	fs.Float64(FlagName("period_max"), d.PeriodMax, "Longest trial period in days")
	fs.Int(FlagName("grid_size"), d.GridSize, "Number of trial periods")
	fs.Float64(FlagName("transit_duration"), d.TransitDuration, "Transit duration in days")
	fs.Int(FlagName("oversample"), d.Oversample, "Phase bins per transit duration")
	fs.Int(FlagName("phase_bins"), d.PhaseBins, "Bins of the folded light curve")

	fs.Int(FlagName("workers"), d.Workers, "Number of concurrent workers")
	fs.Duration(FlagName("time_budget"), d.TimeBudget, "Abort the period search after this long (0 disables)")

	fs.String(FlagName("output_dir"), d.OutputDir, "Directory for report figures")
	fs.String(FlagName("format"), d.Format, "Report image format. [png, jpeg]")
	fs.String(FlagName("db"), d.DB, "Path to the results database (optional)")
	fs.String(FlagName("metrics_file"), d.MetricsFile, "Write Prometheus metrics to this file (optional)")
	fs.String(FlagName("log_file"), d.LogFile, "Write logs to this rotating file instead of stderr")
	fs.String(FlagName("log_level"), d.LogLevel, "Log level. [debug, info, warn, error]")
}

// BindFlags binds the flags defined by RegisterFlags to their keys, so a
// flag set on the command line overrides the file and the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range keys {
		flag := fs.Lookup(FlagName(key))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}
	return nil
}

// Load reads the optional YAML file and decodes the merged settings. The
// result is not validated.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return &c, nil
}
