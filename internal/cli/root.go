// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomtom215/policestats/internal/config"
	"github.com/tomtom215/policestats/internal/ingest"
	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitPanic   = 3
)

// Build-time variables set via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

// memoryStore is accepted as the store argument for an ephemeral store.
const memoryStore = ":memory:"

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policestats <store-path>",
		Short: "Load police crime statistics into a DuckDB spatial store",
		Long: `policestats stages the configured crime-data archive, creates one table
per force and category, and loads every configured period into the store at
<store-path>. Pass ":memory:" for an ephemeral store.

Configuration comes from built-in defaults, then policestats.yaml (or the
file named by POLICESTATS_CONFIG), then environment variables. A .env file in the
working directory is loaded first.

Exit Codes:
  0  - Success
  1  - Ingestion failed
  3  - Panic or unexpected system error`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runIngest,
	}
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("policestats failed")
		return err
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Database.Path = storePath(args[0])
	logging.Init(cfg.LoggingOptions())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())

	return run(ctx, cfg)
}

// run executes one ingestion with a loaded configuration.
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.Ctx(ctx)

	p, err := ingest.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release pipeline resources")
		}
	}()

	stats, runErr := p.Run(ctx)
	if stats != nil {
		if summary, err := stats.SummaryJSON(); err == nil {
			log.Info().RawJSON("summary", summary).Msg("Run summary")
		}
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics textfile")
		}
	}

	return runErr
}

func storePath(arg string) string {
	if arg == memoryStore {
		return ""
	}
	return arg
}
