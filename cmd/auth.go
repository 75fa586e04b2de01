package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/auth"
)

var authGoogleAPIKey bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials for vision model providers",
	Long: `Store and manage API credentials for vision model providers.

Credentials are stored in ~/.ocrstudio/credentials.json (or under
$OCRSTUDIO_HOME) and used as a fallback when environment variables are
not set.`,
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Authenticate with Google via OAuth2 or store a Gemini API key",
	Long: `Opens your browser for Google OAuth2 authorization.

This grants ocrstudio access to the Generative Language API (Gemini).
You need a Google Cloud OAuth2 Client ID and Secret, which can be
created at https://console.cloud.google.com/apis/credentials

With --api-key a Gemini API key is stored instead.`,
	RunE: runAuthGoogle,
}

// keyURLs tells the user where each provider issues API keys.
var keyURLs = map[string]string{
	"anthropic":  "https://console.anthropic.com/settings/keys",
	"openai":     "https://platform.openai.com/api-keys",
	"openrouter": "https://openrouter.ai/keys",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have credentials",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [provider]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials for a provider.

If no provider is specified, removes all stored credentials.
Valid providers: google, anthropic, openai, openrouter`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authGoogleCmd.Flags().BoolVar(&authGoogleAPIKey, "api-key", false, "store a Gemini API key instead of running OAuth2")
	authCmd.AddCommand(authGoogleCmd)
	for _, provider := range []string{"anthropic", "openai", "openrouter"} {
		authCmd.AddCommand(newKeyCommand(provider))
	}
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

// newKeyCommand builds `auth <provider>`, which stores an API key.
func newKeyCommand(provider string) *cobra.Command {
	return &cobra.Command{
		Use:   provider,
		Short: fmt.Sprintf("Store %s API key", provider),
		Long: fmt.Sprintf(`Store your %s API key for persistent use.

Get your API key at %s`, provider, keyURLs[provider]),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey, err := promptLine(cmd.InOrStdin(), cmd.OutOrStdout(), provider+" API key: ")
			if err != nil {
				return err
			}
			if apiKey == "" {
				return fmt.Errorf("API key is required")
			}

			if provider == "anthropic" {
				fmt.Fprint(cmd.OutOrStdout(), "Verifying API key... ")
				if err := verifyAnthropicKey(cmd.Context(), apiKey); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "failed!")
					return fmt.Errorf("key verification failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "valid!")
			}

			return storeAPIKey(cmd.OutOrStdout(), provider, apiKey)
		},
	}
}

func storeAPIKey(out io.Writer, provider, apiKey string) error {
	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if err := creds.SetAPIKey(provider, apiKey); err != nil {
		return err
	}
	if err := auth.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	fmt.Fprintf(out, "%s credentials stored successfully!\n", provider)
	return nil
}

func promptLine(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

func runAuthGoogle(cmd *cobra.Command, args []string) error {
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	reader := bufio.NewReader(in)

	if authGoogleAPIKey {
		apiKey, err := promptLine(reader, out, "Gemini API key: ")
		if err != nil {
			return err
		}
		if apiKey == "" {
			return fmt.Errorf("API key is required")
		}
		return storeAPIKey(out, "google", apiKey)
	}

	// Client ID and Secret come from the environment or a prompt.
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")

	var err error
	if clientID == "" {
		if clientID, err = promptLine(reader, out, "Google OAuth2 Client ID: "); err != nil {
			return err
		}
		if clientID == "" {
			return fmt.Errorf("client ID is required")
		}
	}
	if clientSecret == "" {
		if clientSecret, err = promptLine(reader, out, "Google OAuth2 Client Secret: "); err != nil {
			return err
		}
		if clientSecret == "" {
			return fmt.Errorf("client secret is required")
		}
	}

	token, err := auth.RunGoogleOAuth(cmd.Context(), out, clientID, clientSecret)
	if err != nil {
		return fmt.Errorf("OAuth flow failed: %w", err)
	}

	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	creds.Google = auth.GoogleCredentialsFromToken(token, clientID, clientSecret)
	if err := auth.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintln(out, "Google credentials stored successfully!")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	out := cmd.OutOrStdout()
	path, _ := auth.CredentialPath()
	fmt.Fprintf(out, "Credentials file: %s\n\n", path)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSTATUS")
	for _, provider := range auth.KeyProviders() {
		status := "not configured"
		switch {
		case os.Getenv(auth.EnvVar(provider)) != "":
			status = "configured (env var " + auth.EnvVar(provider) + ")"
		case creds.APIKey(provider) != "":
			status = "configured (stored)"
		case provider == "google" && creds.Google != nil && creds.Google.RefreshToken != "":
			status = "configured (stored: OAuth2)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", provider, status)
	}
	// Ollama runs locally and needs no key.
	fmt.Fprintln(tw, "ollama\tavailable (local)")
	return tw.Flush()
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	creds, err := auth.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		creds = &auth.Credentials{}
		fmt.Fprintln(out, "All stored credentials removed.")
	} else {
		if err := creds.Remove(args[0]); err != nil {
			return fmt.Errorf("%w (valid: google, anthropic, openai, openrouter)", err)
		}
		fmt.Fprintf(out, "%s credentials removed.\n", args[0])
	}

	return auth.Save(creds)
}

func verifyAnthropicKey(ctx context.Context, apiKey string) error {
	// A one-token request is enough to tell whether the key is accepted.
	body := strings.NewReader(`{"model":"claude-haiku-4-5-20251001","max_tokens":1,"messages":[{"role":"user","content":"hi"}]}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key (401 Unauthorized)")
	}
	// Any other status (200, 429, etc.) means the key is valid.
	return nil
}
