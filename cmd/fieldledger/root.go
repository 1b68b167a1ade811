package main

import (
	"github.com/spf13/cobra"

	"fieldledger/internal/api"
	"fieldledger/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fieldledger",
	Short: "Extraction gateway that turns form photos into spreadsheet rows",
	Long: `Fieldledger is an HTTP gateway for field data capture. It proxies form
photos to a vision model for structured extraction, and appends approved
records to an append-only spreadsheet ledger.

The gateway provides:
  - AI extraction of handwritten form fields with per-field confidence
  - Append-only record and upload-log tabs in a connected Google Sheet
  - A correction-request queue, reviewed by admins out of band`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.fieldledger/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
