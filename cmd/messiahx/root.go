package main

import (
	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/config"
	"github.com/waks132/messiahx-sub000/internal/home"
	"github.com/waks132/messiahx-sub000/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "messiahx",
	Short: "Critical text analysis backed by hosted language models",
	Long: `messiahx analyzes texts for manipulation, cognitive bias and narrative
structure using hosted language models.

It provides:
  - Analysis, classification and narrative detection
  - Summaries and reformulations in several styles
  - Research answers and persona chat
  - Prompt templates overridable from a remote configuration service`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.messiahx/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "messiahx home directory (default: ~/.messiahx)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig opens the home directory and the configuration it holds.
// --config takes precedence over the home directory.
func loadConfig() (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, err
	}
	return h, mgr, nil
}
