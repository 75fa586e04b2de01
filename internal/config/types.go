package config

// QualityTier trades extraction cost and latency against model capability.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies a vision model provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGoogle     ProviderType = "google"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level ocrstudio configuration, corresponding to .ocrstudio.yml.
type Config struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	Quality           QualityTier   `yaml:"quality" koanf:"quality"`
	DataDir           string        `yaml:"data_dir" koanf:"data_dir"`
	Port              int           `yaml:"port" koanf:"port"`
	LogLevel          string        `yaml:"log_level" koanf:"log_level"`
	RateLimitRPM      int           `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	MaxUploadMB       int           `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	RequestTimeoutSec int           `yaml:"request_timeout_sec" koanf:"request_timeout_sec"`
	DefaultPrompt     string        `yaml:"default_prompt" koanf:"default_prompt"`
	FieldsFile        string        `yaml:"fields_file" koanf:"fields_file"`
	Samples           SamplesConfig `yaml:"samples" koanf:"samples"`
	CORS              CORSConfig    `yaml:"cors" koanf:"cors"`
}

// SamplesConfig selects the sample documents picked up by batch extraction.
type SamplesConfig struct {
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// CORSConfig holds the browser access policy of the API server.
type CORSConfig struct {
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}
