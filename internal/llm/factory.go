package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/ziadkadry99/ocrstudio/internal/auth"
)

// DefaultModels holds the vision model used when none is configured.
var DefaultModels = map[string]string{
	"openai":     "gpt-4o",
	"openrouter": "openai/gpt-4o",
	"google":     "gemini-2.0-flash",
	"anthropic":  "claude-sonnet-4-5-20250929",
	"ollama":     "llama3.2-vision",
}

// NewProvider creates a vision provider for providerType.
// Keys come from the environment first and the credentials file second.
// Supported provider types: "openai", "openrouter", "google", "anthropic", "ollama".
func NewProvider(providerType string, model string) (Provider, error) {
	if model == "" {
		model = DefaultModels[providerType]
	}

	switch providerType {
	case "openai", "openrouter", "anthropic":
		apiKey := auth.GetAPIKey(providerType)
		if apiKey == "" {
			return nil, fmt.Errorf("no API key for %s: set %s or run `ocrstudio auth %s`",
				providerType, auth.EnvVar(providerType), providerType)
		}
		switch providerType {
		case "openai":
			return NewOpenAIProvider(apiKey, model), nil
		case "openrouter":
			return NewOpenRouterProvider(apiKey, model), nil
		default:
			return NewAnthropicProvider(apiKey, model), nil
		}

	case "google":
		if apiKey := auth.GetAPIKey("google"); apiKey != "" {
			return NewGoogleProvider(apiKey, model), nil
		}
		creds, err := auth.Load()
		if err == nil && creds.Google != nil && creds.Google.RefreshToken != "" {
			return NewGoogleOAuthProvider(auth.NewGoogleTokenSource(context.Background(), creds.Google), model), nil
		}
		return nil, fmt.Errorf("no credentials for google: set GOOGLE_API_KEY or run `ocrstudio auth google`")

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
