package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/ocrstudio/internal/audit"
	"github.com/ziadkadry99/ocrstudio/internal/config"
	"github.com/ziadkadry99/ocrstudio/internal/db"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/llm"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
	"github.com/ziadkadry99/ocrstudio/internal/pipeline"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ocrstudio init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger; --verbose forces debug level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logger.New(level)
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DBPath(), err)
	}
	return database, nil
}

func openConfigStore(database *db.DB) *ocrconfig.Store {
	return ocrconfig.NewStore(database, audit.NewStore(database))
}

func loadCatalog(cfg *config.Config) ([]fields.Field, error) {
	catalog, err := fields.Load(cfg.FieldsFile)
	if err != nil {
		return nil, fmt.Errorf("loading field catalog: %w", err)
	}
	return catalog, nil
}

// newExtractor builds the rate-limited vision extractor for the
// configured provider.
func newExtractor(cfg *config.Config) (*llm.Extractor, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewExtractor(llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM), cfg.Model), nil
}

// applyPromptDefaults lets the config override the built-in fallback prompts.
func applyPromptDefaults(svc *pipeline.Service, cfg *config.Config) {
	if cfg.DefaultPrompt == "" {
		return
	}
	svc.SandboxPrompt = cfg.DefaultPrompt
	svc.ProcessPrompt = cfg.DefaultPrompt
}

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
