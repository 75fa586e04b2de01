package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/ocrstudio/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing mapping
suggestion, field scoring, mapping application and configuration lookup
tools. Stdout carries the protocol, logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		mcpserver.Version = Version
		log.Info().Str("database", cfg.DBPath()).Int("fields", len(catalog)).Msg("ocrstudio MCP server started on stdio")

		srv := mcpserver.NewServer(openConfigStore(database), catalog)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
