package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fieldledger/internal/config"
	"fieldledger/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fieldledger server",
	Long: `Start the fieldledger HTTP server.

The server provides:
  - POST /api/extract                 - AI field extraction from a form image
  - POST /api/sheets/append           - Append an approved record to the ledger
  - GET  /api/sheets/records          - Read the records tab
  - POST /api/sheets/update-request   - File a correction request
  - GET  /api/sheets/update-requests  - List correction requests
  - GET  /api/health                  - Configuration presence booleans

Examples:
  fieldledger serve                  # Start on the configured port (8787)
  fieldledger serve --port 3000      # Start on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
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
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
