// ABOUTME: Root Cobra command and global flags for the beatalign CLI.
// ABOUTME: Sets up lifecycle hooks for config loading, logging, tracing and the narrative store.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/config"
	"github.com/2389-research/beatalign/internal/logging"
	"github.com/2389-research/beatalign/internal/storage"
	"github.com/2389-research/beatalign/internal/telemetry"
)

var globalConfig *config.Config
var globalLogger *slog.Logger
var globalNarratives *storage.DirNarrativeStore
var globalTelemetryShutdown func(context.Context) error

// Flags
var (
	narrativesDirFlag string
	logLevelFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "beatalign",
	Short: "Align the beats of two narratives",
	Long: `
██████╗ ███████╗ █████╗ ████████╗ █████╗ ██╗     ██╗ ██████╗ ███╗   ██╗
██╔══██╗██╔════╝██╔══██╗╚══██╔══╝██╔══██╗██║     ██║██╔════╝ ████╗  ██║
██████╔╝█████╗  ███████║   ██║   ███████║██║     ██║██║  ███╗██╔██╗ ██║
██╔══██╗██╔══╝  ██╔══██║   ██║   ██╔══██║██║     ██║██║   ██║██║╚██╗██║
██████╔╝███████╗██║  ██║   ██║   ██║  ██║███████╗██║╚██████╔╝██║ ╚████║
╚═════╝ ╚══════╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝ ╚═════╝ ╚═╝  ╚═══╝

Find corresponding beats between two narratives with semantic similarity,
top-k matching and Smith-Waterman local alignment.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if narrativesDirFlag != "" {
			cfg.Narratives.Dir = narrativesDirFlag
		}
		if logLevelFlag != "" {
			cfg.Log.Level = logLevelFlag
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		globalConfig = cfg

		logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		globalLogger = logger

		shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry.OTLPEndpoint, telemetry.ServiceName)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		}
		globalTelemetryShutdown = shutdown

		dir, err := cfg.GetNarrativesDir()
		if err != nil {
			return fmt.Errorf("failed to resolve narratives dir: %w", err)
		}
		store, err := storage.NewDirNarrativeStore(dir)
		if err != nil {
			return fmt.Errorf("failed to open narrative store: %w", err)
		}
		globalNarratives = store

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalNarratives != nil {
			_ = globalNarratives.Close()
			globalNarratives = nil
		}
		if globalTelemetryShutdown != nil {
			if err := globalTelemetryShutdown(context.Background()); err != nil && globalLogger != nil {
				globalLogger.Warn("failed to flush traces", "error", err)
			}
			globalTelemetryShutdown = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&narrativesDirFlag, "narratives", "", "Narratives directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
}
