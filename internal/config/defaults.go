package config

import (
	"path/filepath"
	"time"
)

// DBFile is the SQLite file created inside the data directory.
const DBFile = "ocrstudio.db"

// qualityPresets maps each provider+quality combination to its vision model.
var qualityPresets = map[ProviderType]map[QualityTier]string{
	ProviderOpenAI: {
		QualityLite:   "gpt-4o-mini",
		QualityNormal: "gpt-4o",
		QualityMax:    "gpt-4.1",
	},
	ProviderOpenRouter: {
		QualityLite:   "openai/gpt-4o-mini",
		QualityNormal: "openai/gpt-4o",
		QualityMax:    "openai/gpt-4o",
	},
	ProviderGoogle: {
		QualityLite:   "gemini-2.0-flash",
		QualityNormal: "gemini-2.0-flash",
		QualityMax:    "gemini-1.5-pro",
	},
	ProviderAnthropic: {
		QualityLite:   "claude-haiku-4-5-20251001",
		QualityNormal: "claude-sonnet-4-5-20250929",
		QualityMax:    "claude-sonnet-4-5-20250929",
	},
	ProviderOllama: {
		QualityLite:   "llama3.2-vision",
		QualityNormal: "llama3.2-vision",
		QualityMax:    "llama3.2-vision:90b",
	},
}

// DefaultIncludes are the glob patterns treated as sample documents.
var DefaultIncludes = []string{
	"**/*.{png,jpg,jpeg,webp,gif,pdf}",
	"**/*.{PNG,JPG,JPEG,WEBP,GIF,PDF}",
}

// DefaultExcludes are glob patterns skipped during sample discovery.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	".ocrstudio/**",
	"**/thumbnails/**",
	"**/*.thumb.*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o",
		Quality:           QualityNormal,
		DataDir:           ".ocrstudio",
		Port:              8080,
		LogLevel:          "info",
		RateLimitRPM:      60,
		MaxUploadMB:       10,
		RequestTimeoutSec: 120,
		Samples: SamplesConfig{
			Include: append([]string(nil), DefaultIncludes...),
			Exclude: append([]string(nil), DefaultExcludes...),
		},
	}
}

// ModelFor returns the vision model for the given provider and tier.
// Unknown combinations fall back to the normal OpenAI model.
func ModelFor(provider ProviderType, tier QualityTier) string {
	if tiers, ok := qualityPresets[provider]; ok {
		if model, ok := tiers[tier]; ok {
			return model
		}
	}
	return qualityPresets[ProviderOpenAI][QualityNormal]
}

// DBPath is the location of the configuration database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFile)
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// RequestTimeout is the per-request deadline of the API server.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
