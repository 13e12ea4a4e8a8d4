// ABOUTME: CLI commands for the persistent embedding cache.
// ABOUTME: Provides stats and clear subcommands for the configured vector store.
package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/config"
	"github.com/2389-research/beatalign/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the embedding cache",
	Long:  "Embedding vectors are cached between runs so unchanged beats are not re-embedded.",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache size",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached embedding",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheFormat string

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheStatsCmd.Flags().StringVar(&cacheFormat, "format", "", "Output format: json or table (default: table on a terminal)")
}

// openVectorStore opens the configured persistent store, or returns nil when
// the cache lives only in memory.
func openVectorStore(cfg *config.Config) (storage.VectorStore, error) {
	if cfg.Cache.Backend != config.CacheFile && cfg.Cache.Backend != config.CacheSQLite {
		return nil, nil
	}
	path, err := cfg.GetCachePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache path: %w", err)
	}
	return storage.OpenVectorStore(cfg.Cache.Backend, path)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(cacheFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	store, err := openVectorStore(globalConfig)
	if err != nil {
		return err
	}
	if store == nil {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Cache backend %q keeps nothing between runs.\n", globalConfig.Cache.Backend)
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}
	if format == formatJSON {
		return writeJSON(cmd, stats)
	}

	updated := "never"
	if !stats.UpdatedAt.IsZero() {
		updated = humanize.Time(stats.UpdatedAt)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Backend", "Path", "Vectors", "Size", "Updated"},
		[][]string{{
			stats.Backend,
			stats.Path,
			humanize.Comma(int64(stats.Entries)),
			humanize.Bytes(uint64(max(stats.Bytes, 0))),
			updated,
		}},
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return err
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openVectorStore(globalConfig)
	if err != nil {
		return err
	}
	if store == nil {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear.")
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Embedding cache cleared.")
	return err
}
