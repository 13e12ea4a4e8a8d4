// ABOUTME: CLI commands for narrative files.
// ABOUTME: Provides list, show, import and export subcommands over the narratives directory.
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/models"
	"github.com/2389-research/beatalign/internal/storage"
)

var narrativesCmd = &cobra.Command{
	Use:     "narratives",
	Aliases: []string{"ls"},
	Short:   "List narratives",
	Long:    "List, show, import and export the narratives available for alignment.",
	Args:    cobra.NoArgs,
	RunE:    runNarrativesList,
}

var narrativesShowCmd = &cobra.Command{
	Use:   "show <narrative>",
	Short: "Show the beats of a narrative",
	Args:  cobra.ExactArgs(1),
	RunE:  runNarrativesShow,
}

var narrativesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Copy a narrative file into the narratives directory",
	Long:  "Read a markdown, YAML, TOML or JSON narrative and store it as markdown under its id.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNarrativesImport,
}

var narrativesExportCmd = &cobra.Command{
	Use:   "export <narrative>",
	Short: "Print a narrative in another format",
	Args:  cobra.ExactArgs(1),
	RunE:  runNarrativesExport,
}

// Flags
var (
	narrativesFormat string
	importID         string
	exportFormat     string
)

func init() {
	rootCmd.AddCommand(narrativesCmd)
	narrativesCmd.AddCommand(narrativesShowCmd)
	narrativesCmd.AddCommand(narrativesImportCmd)
	narrativesCmd.AddCommand(narrativesExportCmd)

	narrativesCmd.PersistentFlags().StringVar(&narrativesFormat, "format", "", "Output format: json or table (default: table on a terminal)")
	narrativesImportCmd.Flags().StringVar(&importID, "id", "", "Store under this id instead of the file's")
	narrativesExportCmd.Flags().StringVar(&exportFormat, "to", "yaml", "Target format: md, yaml, toml or json")
}

func runNarrativesList(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(narrativesFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	infos, err := globalNarratives.List()
	if err != nil {
		return fmt.Errorf("failed to list narratives: %w", err)
	}
	if format == formatJSON {
		return writeJSON(cmd, infos)
	}
	if len(infos) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No narratives found in %s.\n", globalNarratives.Root())
		return err
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.ID,
			info.Title,
			strconv.Itoa(info.Beats),
			info.Format,
			humanize.Time(info.ModifiedAt),
		})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Title", "Beats", "Format", "Modified"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return err
}

func runNarrativesShow(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(narrativesFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	n, err := globalNarratives.Resolve(args[0])
	if err != nil {
		return err
	}
	if format == formatJSON {
		return writeJSON(cmd, struct {
			models.NarrativeInfo
			Beats []models.Beat `json:"beats"`
		}{n.Info(), n.Beats})
	}

	header := n.ID
	if n.Title != "" {
		header = fmt.Sprintf("%s - %s", n.ID, n.Title)
	}
	rows := make([][]string, 0, len(n.Beats))
	for i, b := range n.Beats {
		rows = append(rows, []string{strconv.Itoa(i + 1), b.ID, truncate(b.Text, 80)})
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", header, renderTable(
		[]string{"#", "Beat", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
	))
	return err
}

func runNarrativesImport(cmd *cobra.Command, args []string) error {
	n, err := storage.LoadNarrativeFile(args[0])
	if err != nil {
		return err
	}
	if importID != "" {
		n.ID = importID
	}
	path, err := globalNarratives.Save(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d beats) to %s\n", n.ID, len(n.Beats), path)
	return err
}

func runNarrativesExport(cmd *cobra.Command, args []string) error {
	n, err := globalNarratives.Resolve(args[0])
	if err != nil {
		return err
	}
	data, err := storage.EncodeNarrative(n, strings.ToLower(exportFormat))
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
