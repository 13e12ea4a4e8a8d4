// ABOUTME: CLI command running many alignment jobs from a YAML file in parallel.
// ABOUTME: Job params overlay the configured defaults; failed jobs are reported, not fatal.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/beatalign/internal/align"
)

var batchCmd = &cobra.Command{
	Use:   "batch <jobs.yaml>",
	Short: "Run alignment jobs from a YAML file",
	Long: `Run several alignments concurrently. The jobs file looks like:

  workers: 4
  jobs:
    - source: odyssey
      target: retelling
      mode: local-align
      params:
        gap_penalty: -2
    - source: odyssey
      mode: self-analysis

Unset params fall back to the configured defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// Flags
var (
	batchWorkers int
	batchFormat  string
)

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Parallel jobs (default: file, then config)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "", "Output format: json or table (default: table on a terminal)")
}

// batchFile is the jobs file layout.
type batchFile struct {
	Workers int        `yaml:"workers"`
	Jobs    []batchJob `yaml:"jobs"`
}

// batchJob is one alignment in a jobs file. Params is decoded over a copy of
// the defaults so omitted fields keep their default value.
type batchJob struct {
	Source string    `yaml:"source"`
	Target string    `yaml:"target"`
	Mode   string    `yaml:"mode"`
	Params yaml.Node `yaml:"params"`
}

// parseBatchFile decodes a jobs file into engine requests, leaving narrative
// resolution to the caller.
func parseBatchFile(data []byte, defaults align.Params) (*batchFile, []align.Mode, []align.Params, error) {
	var file batchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse jobs file: %w", err)
	}
	if len(file.Jobs) == 0 {
		return nil, nil, nil, fmt.Errorf("jobs file has no jobs")
	}

	modes := make([]align.Mode, len(file.Jobs))
	params := make([]align.Params, len(file.Jobs))
	for i, job := range file.Jobs {
		if job.Source == "" {
			return nil, nil, nil, fmt.Errorf("job %d: source is required", i+1)
		}
		mode := align.ModeTopK
		if job.Mode != "" {
			m, err := align.ParseMode(job.Mode)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("job %d: %w", i+1, err)
			}
			mode = m
		}
		p := defaults
		if !job.Params.IsZero() {
			if err := job.Params.Decode(&p); err != nil {
				return nil, nil, nil, fmt.Errorf("job %d: invalid params: %w", i+1, err)
			}
		}
		modes[i] = mode
		params[i] = p
	}
	return &file, modes, params, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(batchFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read jobs file: %w", err)
	}
	file, modes, params, err := parseBatchFile(data, globalConfig.AlignParams())
	if err != nil {
		return err
	}

	reqs := make([]align.Request, len(file.Jobs))
	for i, job := range file.Jobs {
		req, err := buildRequest(modes[i], job.Source, job.Target, params[i])
		if err != nil {
			return fmt.Errorf("job %d: %w", i+1, err)
		}
		reqs[i] = req
	}

	workers := globalConfig.Align.Workers
	if file.Workers > 0 {
		workers = file.Workers
	}
	if batchWorkers > 0 {
		workers = batchWorkers
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return withRuntime(ctx, func(rt *runtime) error {
		items, err := rt.engine.RunBatch(ctx, reqs, workers)
		if err != nil {
			return err
		}
		failed := 0
		for _, item := range items {
			if item.Err() != nil {
				failed++
			}
		}
		globalLogger.Info("batch complete", "jobs", len(items), "failed", failed, "workers", workers)

		if format == formatJSON {
			if err := writeJSON(cmd, items); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintln(cmd.OutOrStdout(), renderBatch(items)); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(items))
		}
		return nil
	})
}

func renderBatch(items []align.BatchItem) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		target := item.Request.TargetName
		if target == "" {
			target = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(item.Request.Mode),
			item.Request.SourceName,
			target,
			batchSummary(item),
		})
	}
	return renderTable(
		[]string{"#", "Mode", "Source", "Target", "Result"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func batchSummary(item align.BatchItem) string {
	switch {
	case item.Error != "":
		return "error: " + item.Error
	case item.Report == nil:
		return "skipped"
	case item.Report.Local != nil:
		if len(item.Report.Local.Formatted) == 0 {
			return "no alignment"
		}
		best := item.Report.Local.Formatted[0]
		return fmt.Sprintf("%d alignments, best %.3f (%d pairs)", len(item.Report.Local.Formatted), best.Score, len(best.Pairs))
	case item.Report.Result != nil:
		return fmt.Sprintf("%d matches, coverage %.0f%%", len(item.Report.Result.Matches), item.Report.Result.AlignmentCoverage*100)
	default:
		return "ok"
	}
}
