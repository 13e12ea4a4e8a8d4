// ABOUTME: Cobra command for interactive embeddings endpoint setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate remote provider settings.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/2389-research/beatalign/internal/config"
	"github.com/2389-research/beatalign/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect an embeddings endpoint",
	Long:  "Interactive wizard to configure the remote embeddings API URL, model and key.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("setup needs an interactive terminal; edit the config file or set BEATALIGN_API_URL instead")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(
		cfg.Provider.APIURL,
		cfg.Provider.Model,
		cfg.Provider.APIKey,
	)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, embedModel, apiKey := final.Result()
	cfg.Provider.Kind = config.ProviderRemote
	cfg.Provider.APIURL = apiURL
	cfg.Provider.Model = embedModel
	cfg.Provider.APIKey = apiKey

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
