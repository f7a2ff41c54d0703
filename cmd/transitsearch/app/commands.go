package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roman-kulish/transit-search/internal/config"
	"github.com/roman-kulish/transit-search/internal/logging"
)

// NewRootCommand builds the transitsearch command tree. Settings are read
// from the --config file, TRANSIT_ environment variables and flags, in
// increasing order of precedence.
func NewRootCommand() *cobra.Command {
	v := config.NewViper()
	var configFile string

	root := &cobra.Command{
		Use:           "transitsearch",
		Short:         "Search stitched TESS light curves for periodic transits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.BindFlags(v, cmd.Root().PersistentFlags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	config.RegisterFlags(flags)

	load := func() (*config.Config, error) {
		return config.Load(v, configFile)
	}

	root.AddCommand(
		newSearchCommand(load),
		newCandidatesCommand(load),
		newConfigCommand(load),
	)
	return root
}

type loadFunc func() (*config.Config, error)

func newSearchCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "search <TIC id>",
		Short: "Run the transit search on one target and render its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			return Run(cmd.Context(), cfg, args[0], logger, cmd.OutOrStdout())
		},
	}
}

func newCandidatesCommand(load loadFunc) *cobra.Command {
	var filter CandidatesConfig
	var minPower float64

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List stored runs ranked by best power",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			if cmd.Flags().Changed("min-power") {
				filter.MinPower = &minPower
			}
			return Candidates(cmd.Context(), cfg, filter, logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&filter.Target, "target", "", "Only list runs of this target")
	cmd.Flags().Float64Var(&minPower, "min-power", 0, "Only list runs with at least this best power")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "Maximum number of runs to list (0 lists all)")
	return cmd
}

func newConfigCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return cfg.Dump(cmd.OutOrStdout())
		},
	}
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, func() error, error) {
	var level slog.LevelVar

	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrInvalidConfiguration, err)
	}
	level.Set(lvl)

	return logging.New(w, cfg.LogFile, &level)
}
