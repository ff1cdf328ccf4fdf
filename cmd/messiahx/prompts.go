package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/config"
	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage the template document without a running server",
	Long: `Manage the static template document.

The document is a JSON mirror of the compiled-in default templates, keyed
by the remote configuration keys ({FEATURE}_{STYLE}_{ROLE}_PROMPT). Edit it,
then publish it to the remote configuration service so the server picks the
new bodies up on its next refresh.

Examples:
  messiahx prompts export                 # Write ~/.messiahx/prompts.json
  messiahx prompts export --out -         # Print to stdout
  messiahx prompts import edited.json --publish  # Store and write to the remote backend
  messiahx prompts list`,
}

var promptsOut string

var promptsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the default templates as a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := prompts.NewResolver(nil, slog.New(slog.DiscardHandler))
		if err != nil {
			return err
		}
		doc := prompts.ExportDocument(resolver)

		out := promptsOut
		if out == "-" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		if out == "" {
			h, _, err := loadConfig()
			if err != nil {
				return err
			}
			out = h.PromptsPath()
		}
		if err := prompts.SaveDocument(out, doc); err != nil {
			return err
		}
		fmt.Printf("Wrote %d templates to %s\n", len(doc.Prompts), out)
		return nil
	},
}

var promptsPublish bool

var promptsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a template document and store it in the home directory",
	Long: `Validate a template document and copy it to the home directory.
With --publish the values are also written to the configured remote
backend. Empty values delete the key remotely.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		doc, err := prompts.LoadDocument(args[0])
		if err != nil {
			return err
		}
		if err := prompts.SaveDocument(h.PromptsPath(), doc); err != nil {
			return err
		}
		fmt.Printf("Stored %d templates in %s\n", len(doc.Prompts), h.PromptsPath())

		if !promptsPublish {
			return nil
		}
		n, err := publishDocument(cmd.Context(), mgr.Get(), doc)
		if err != nil {
			return err
		}
		fmt.Printf("Published; remote store now holds %d keys\n", n)
		return nil
	},
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the compiled-in default templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := prompts.NewResolver(nil, slog.New(slog.DiscardHandler))
		if err != nil {
			return err
		}
		for _, p := range resolver.AllEmbedded() {
			fmt.Printf("%-42s %s  %v\n", p.Key, p.Hash[:12], p.Placeholders)
		}
		return nil
	},
}

// publishDocument writes doc to the remote backend cfg names and returns the
// number of keys the backend holds afterwards.
func publishDocument(ctx context.Context, cfg *config.Config, doc *prompts.Document) (int, error) {
	source, err := cfg.RemoteSource()
	if err != nil {
		return 0, err
	}
	if source == nil {
		return 0, errors.New("remote_config.backend is none; nothing to publish to")
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	client := remoteconfig.NewClient(source, remoteconfig.Options{
		FetchTimeout: cfg.RemoteConfig.FetchTimeout(),
		Attempts:     uint(cfg.RemoteConfig.Retries),
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err := client.Publish(ctx, doc.Prompts); err != nil {
		return 0, err
	}
	return client.Status().Keys, nil
}

func init() {
	promptsExportCmd.Flags().StringVar(&promptsOut, "out", "", "Output file, - for stdout (default: home prompts.json)")

	promptsCmd.AddCommand(promptsExportCmd)
	promptsImportCmd.Flags().BoolVar(&promptsPublish, "publish", false, "Also publish to the remote configuration service")

	promptsCmd.AddCommand(promptsImportCmd)
	promptsCmd.AddCommand(promptsListCmd)
	rootCmd.AddCommand(promptsCmd)
}
