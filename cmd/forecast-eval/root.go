package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "forecast-eval",
	Short: "Score and compare probabilistic forecasts",
	Long: `forecast-eval scores probabilistic forecasts against held-out ground truth
with weighted quantile loss, coverage, MASE, MSIS and related metrics.

Use compare to run every configured forecaster on a dataset and rank them,
score to evaluate forecasts produced elsewhere, and simulate to generate a
synthetic dataset to experiment with.`,
	PersistentPreRunE: setupLogging,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// setupLogging installs the logger selected by the global flags before any command runs
func setupLogging(cmd *cobra.Command, args []string) error {
	logger, err := globalFlags.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(historyCmd)
}
