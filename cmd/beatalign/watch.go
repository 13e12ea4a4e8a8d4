// ABOUTME: CLI command that re-runs an alignment whenever narrative files change.
// ABOUTME: Watches the narratives directory with a debounce and reuses one engine across runs.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/align"
	"github.com/2389-research/beatalign/internal/storage"
)

var watchCmd = &cobra.Command{
	Use:   "watch <source> [target]",
	Short: "Re-align whenever narrative files change",
	Long: `Run an alignment, then run it again every time a file under the narratives
directory changes. Unchanged beats reuse their cached embeddings.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWatch,
}

// Flags
var (
	watchMode     string
	watchFormat   string
	watchDebounce time.Duration
	watchParams   paramFlags
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchMode, "mode", string(align.ModeLocalAlign), "Mode: top-k-match, local-align or self-analysis")
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "Output format: json or table (default: table on a terminal)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", storage.DefaultWatchDebounce, "Quiet period before re-running")
	watchParams.register(watchCmd, true)
}

func runWatch(cmd *cobra.Command, args []string) error {
	mode, err := align.ParseMode(watchMode)
	if err != nil {
		return err
	}
	format, err := resolveFormat(watchFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	target := ""
	if len(args) == 2 {
		target = args[1]
	}
	params := watchParams.apply(cmd, globalConfig.AlignParams())

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return withRuntime(ctx, func(rt *runtime) error {
		run := func() {
			req, err := buildRequest(mode, args[0], target, params)
			if err == nil {
				var report *align.Report
				report, err = rt.engine.Run(ctx, req)
				if err == nil {
					err = writeReport(cmd, report, format)
				}
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				globalLogger.Error("alignment failed", "error", err)
			}
		}

		run()
		globalLogger.Info("watching for changes", "dir", globalNarratives.Root())
		return storage.Watch(ctx, globalNarratives.Root(), watchDebounce, globalLogger, func(paths []string) {
			globalLogger.Info("narratives changed", "files", len(paths))
			run()
		})
	})
}
