// Package cmd defines and implements the CLI commands for the jobscout executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobscout/internal/config"
	"jobscout/internal/logging"
)

var (
	cfgFile         string
	sourcesOverride []string
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobscout",
		Short: "A multi-source job posting ingestion pipeline.",
		Long: `jobscout fetches job postings from several boards and company career
pages, normalizes and deduplicates them, filters for relevance and
persists the survivors to an append-mostly store. Run it once from the
command line or keep it running as an HTTP service on a schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml if present)")
	cmd.PersistentFlags().StringSliceVar(&sourcesOverride, "sources", nil, "comma-separated sources to fetch, overriding the config (e.g. timesjobs,indeed)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// setup loads configuration and builds the logger shared by subcommands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if len(sourcesOverride) > 0 {
		cfg.Sources.Enabled = sourcesOverride
		if err := cfg.Validate(); err != nil {
			return config.Config{}, nil, fmt.Errorf("invalid sources override: %w", err)
		}
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
