package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/config"
	"github.com/waks132/messiahx-sub000/internal/server"
)

var (
	serveHost string
	servePort string
	serveLog  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the messiahx server",
	Long: `Start the messiahx HTTP server.

The server reads config.yaml from the current directory or the home
directory and reloads providers when the file changes. Templates are read
from the remote configuration service when one is configured, falling back
to the compiled-in defaults.

The server provides:
  - /health  - Basic server health check
  - /ready   - Readiness check (remote config and model provider)
  - /metrics - Prometheus metrics
  - /api/... - Actions, templates and metrics summary

Examples:
  messiahx serve                    # Start on the configured port (default 8080)
  messiahx serve --port 3000        # Start on custom port
  messiahx serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		logCfg := mgr.Get().Log
		if serveLog != "" {
			logCfg.Level = serveLog
		}
		logger := newLogger(os.Stdout, logCfg)
		slog.SetDefault(logger)

		if f := mgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
			mgr.SetLogger(logger)
			mgr.WatchConfig()
		} else {
			logger.Info("no config file found, using defaults", "home", h.Path())
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")
	serveCmd.Flags().StringVar(&serveLog, "log-level", "", "Log level: debug, info, warn, error (default: log.level)")

	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the process logger from the log section of the config.
func newLogger(w io.Writer, cfg config.LogCfg) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
