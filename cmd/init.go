package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ocrstudio configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose a vision model provider, quality tier, port and data directory, and writes them to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
