package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobscout/internal/app"
	"jobscout/internal/report"
)

// newRunCmd creates the 'run' subcommand: a single ingestion pass.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Executes one ingestion pass and prints the run summary",
		Long: `Fetches all enabled sources once, persists the accepted postings and
prints the run summary to stdout. Exits non-zero when the run hit a
fatal error; per-source failures alone do not fail the command.`,
		RunE: runOnceCommand,
	}
}

func runOnceCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer cleanup()

	summary, runErr := svc.RunOnce(ctx)
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
	}
	if runErr != nil {
		logger.Error("ingestion run failed", zap.Error(runErr))
		return runErr
	}
	return nil
}
