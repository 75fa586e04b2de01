package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/pipeline"
	"github.com/ziadkadry99/ocrstudio/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configuration console API server",
	Long: `Starts the HTTP API used by the OCR configuration console: configuration
CRUD and resolution, the audit trail, mapping suggestions, sandbox tests,
document processing and the streaming sandbox WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if serveAllowAll {
			cfg.CORS.AllowAll = true
		}

		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		// A missing key only disables the document endpoints.
		var extractor pipeline.Extractor
		if ex, err := newExtractor(cfg); err != nil {
			log.Warn().Err(err).Str("provider", string(cfg.Provider)).Msg("document extraction disabled")
		} else {
			extractor = ex
		}

		srv := server.New(server.Config{
			Port:      cfg.Port,
			MaxUpload: cfg.MaxUploadBytes(),
			AllowAll:  cfg.CORS.AllowAll,
			Timeout:   cfg.RequestTimeout(),
		}, database, extractor, catalog, log)
		applyPromptDefaults(srv.Service(), cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().
			Str("version", Version).
			Int("port", cfg.Port).
			Str("database", cfg.DBPath()).
			Str("provider", string(cfg.Provider)).
			Str("model", cfg.Model).
			Int("fields", len(catalog)).
			Msg("ocrstudio server starting")

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		log.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow CORS requests from any origin")
	rootCmd.AddCommand(serveCmd)
}
