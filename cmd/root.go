package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ocrstudio",
	Short: "Configure, test and run OCR extraction pipelines",
	Long: `ocrstudio manages per-module, per-consignor and per-transporter OCR
configurations: the prompt sent to a vision model and the mappings that
turn its JSON output into canonical fields. It serves the API used by the
configuration console, exposes the mapping tools over MCP and runs batch
extractions from the command line.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

