package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// GoogleCredentials stores OAuth2 tokens for the Gemini vision API.
type GoogleCredentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpiry  string `json:"token_expiry,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// APIKeyCredentials stores an API key for a provider.
type APIKeyCredentials struct {
	APIKey string `json:"api_key,omitempty"`
}

// Credentials holds stored credentials for all OCR providers.
type Credentials struct {
	Google     *GoogleCredentials `json:"google,omitempty"`
	GoogleKey  *APIKeyCredentials `json:"google_api_key,omitempty"`
	Anthropic  *APIKeyCredentials `json:"anthropic,omitempty"`
	OpenAI     *APIKeyCredentials `json:"openai,omitempty"`
	OpenRouter *APIKeyCredentials `json:"openrouter,omitempty"`
}

// envKeys maps a provider to the environment variable that overrides its stored key.
var envKeys = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"google":     "GOOGLE_API_KEY",
}

// KeyProviders returns the providers that authenticate with an API key, sorted.
func KeyProviders() []string {
	names := make([]string, 0, len(envKeys))
	for name := range envKeys {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EnvVar returns the environment variable consulted for provider, or "".
func EnvVar(provider string) string {
	return envKeys[provider]
}

// CredentialPath returns the path to the credentials file.
// OCRSTUDIO_HOME overrides the default ~/.ocrstudio directory.
func CredentialPath() (string, error) {
	if dir := os.Getenv("OCRSTUDIO_HOME"); dir != "" {
		return filepath.Join(dir, "credentials.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ocrstudio", "credentials.json"), nil
}

// Load reads the credentials file.
// Returns empty credentials if the file doesn't exist.
func Load() (*Credentials, error) {
	path, err := CredentialPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return &creds, nil
}

// Save writes credentials with owner-only permissions.
func Save(creds *Credentials) error {
	path, err := CredentialPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetAPIKey stores key for provider, replacing any previous value.
func (c *Credentials) SetAPIKey(provider, key string) error {
	entry := &APIKeyCredentials{APIKey: key}
	switch provider {
	case "anthropic":
		c.Anthropic = entry
	case "openai":
		c.OpenAI = entry
	case "openrouter":
		c.OpenRouter = entry
	case "google":
		c.GoogleKey = entry
	default:
		return fmt.Errorf("provider %q does not use an API key", provider)
	}
	return nil
}

// Remove deletes every stored credential for provider. For google this
// covers both the OAuth tokens and the API key.
func (c *Credentials) Remove(provider string) error {
	switch provider {
	case "anthropic":
		c.Anthropic = nil
	case "openai":
		c.OpenAI = nil
	case "openrouter":
		c.OpenRouter = nil
	case "google":
		c.Google = nil
		c.GoogleKey = nil
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	return nil
}

// APIKey returns the stored key for provider, or "".
func (c *Credentials) APIKey(provider string) string {
	var entry *APIKeyCredentials
	switch provider {
	case "anthropic":
		entry = c.Anthropic
	case "openai":
		entry = c.OpenAI
	case "openrouter":
		entry = c.OpenRouter
	case "google":
		entry = c.GoogleKey
	}
	if entry == nil {
		return ""
	}
	return entry.APIKey
}

// GetAPIKey returns the API key for the given provider.
// It checks the environment variable first, then falls back to stored credentials.
func GetAPIKey(provider string) string {
	if env := envKeys[provider]; env != "" {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}

	creds, err := Load()
	if err != nil {
		return ""
	}
	return creds.APIKey(provider)
}

// HasGoogleOAuth returns true if Google OAuth credentials are stored.
func HasGoogleOAuth() bool {
	creds, err := Load()
	if err != nil {
		return false
	}
	return creds.Google != nil && creds.Google.RefreshToken != ""
}
