// ABOUTME: Table rendering for reports and listings using go-pretty.
// ABOUTME: Chooses between table and JSON output depending on flags and the terminal.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/align"
)

// Output formats.
const (
	formatJSON  = "json"
	formatTable = "table"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// resolveFormat returns the requested format, or table for terminals and
// JSON for pipes when none was given.
func resolveFormat(requested string, out io.Writer) (string, error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case formatJSON:
		return formatJSON, nil
	case formatTable:
		return formatTable, nil
	case "":
		if isTerminal(out) {
			return formatTable, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or table)", requested)
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport prints a report in the chosen format.
func writeReport(cmd *cobra.Command, report *align.Report, format string) error {
	if format == formatJSON {
		return writeJSON(cmd, report)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
	return err
}

func renderReport(report *align.Report) string {
	var sb strings.Builder
	target := report.Target
	if target == "" {
		target = report.Source
	}
	fmt.Fprintf(&sb, "%s: %s -> %s (run %s, %s)\n", report.Mode, report.Source, target, report.RunID, report.Duration.Round(time.Microsecond))

	if report.Result != nil {
		sb.WriteString(renderMatches(report.Result.Matches))
		fmt.Fprintf(&sb, "\nmean %.3f  max %.3f  coverage %.0f%%\n",
			report.Result.MeanSimilarity, report.Result.MaxSimilarity, report.Result.AlignmentCoverage*100)
	}
	if report.Local != nil {
		if len(report.Local.Formatted) == 0 {
			sb.WriteString("No local alignment above the minimum score.\n")
		}
		for i, aln := range report.Local.Formatted {
			fmt.Fprintf(&sb, "\nAlignment %d: score %.3f, identity %.0f%%, %d gaps, source %d-%d, target %d-%d\n",
				i+1, aln.Score, aln.Identity*100, aln.GapCount,
				aln.SourceSpan.Start, aln.SourceSpan.End, aln.TargetSpan.Start, aln.TargetSpan.End)
			sb.WriteString(renderPairs(aln.Pairs))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderMatches(matches []align.SimilarityMatch) string {
	if len(matches) == 0 {
		return "No matches above the threshold.\n"
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			m.SourceID,
			strconv.Itoa(m.Rank),
			m.TargetID,
			strconv.FormatFloat(m.Score, 'f', 3, 64),
			m.TargetSnippet,
		})
	}
	return renderTable(
		[]string{"Source", "Rank", "Target", "Score", "Target text"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func renderPairs(pairs []align.AlignedPair) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		source, target := p.SourceID, p.TargetID
		if source == "" {
			source = "-"
		}
		if target == "" {
			target = "-"
		}
		score := strconv.FormatFloat(p.Score, 'f', 3, 64)
		if p.IsGap {
			score = "gap"
		}
		rows = append(rows, []string{source, target, score})
	}
	return renderTable([]string{"Source", "Target", "Score"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}
