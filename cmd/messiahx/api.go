package main

import (
	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running messiahx server via HTTP.

These commands require a running server (messiahx serve).
Use --server to specify a custom server URL.

Examples:
  messiahx api health                                  # Check server health
  messiahx api run analyze --file speech.txt           # Analyze a text
  messiahx api run summarize --text "..." --style bullet
  messiahx api prompts list                            # Show template sources`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model-backed action",
}

var apiPromptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Template commands",
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Action metrics commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func addCommands(parent *cobra.Command, eps []api.Endpoint) {
	reg := api.NewRegistry()
	for _, ep := range eps {
		reg.Register(ep)
	}
	reg.AddCommands(parent, getServerURL)
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	addCommands(apiCmd, endpoints.HealthCommands())

	addCommands(runCmd, endpoints.ActionCommands())
	addCommands(apiPromptsCmd, endpoints.PromptCommands())
	addCommands(metricsCmd, endpoints.MetricsCommands())

	apiCmd.AddCommand(runCmd)
	apiCmd.AddCommand(apiPromptsCmd)
	apiCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(apiCmd)
}
