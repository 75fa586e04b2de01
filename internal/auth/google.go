package auth

import (
	"context"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleScope = "https://www.googleapis.com/auth/generative-language"

// GoogleTimeout bounds how long RunGoogleOAuth waits for the browser callback.
var GoogleTimeout = 5 * time.Minute

func googleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{googleScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
	}
}

// RunGoogleOAuth performs the OAuth2 browser flow for Gemini access.
// It serves a loopback callback, opens the consent page and exchanges
// the returned code for tokens. Instructions are written to out.
func RunGoogleOAuth(ctx context.Context, out io.Writer, clientID, clientSecret string) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting local server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	conf := googleConfig(clientID, clientSecret, fmt.Sprintf("http://localhost:%d/callback", port))

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			msg := q.Get("error")
			if msg == "" {
				msg = "no authorization code received"
			}
			fmt.Fprintf(w, "<html><body><h2>Authorization failed</h2><p>%s</p></body></html>", html.EscapeString(msg))
			select {
			case errCh <- fmt.Errorf("OAuth callback error: %s", msg):
			default:
			}
			return
		}
		fmt.Fprint(w, "<html><body><h2>Authorized</h2><p>You can return to ocrstudio.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("local server error: %w", err)
		}
	}()
	defer server.Close()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "\nOpening browser for Google authorization...\n")
	fmt.Fprintf(out, "If the browser doesn't open, visit this URL:\n%s\n\n", authURL)
	openBrowser(authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(GoogleTimeout):
		return nil, fmt.Errorf("authorization timed out after %s", GoogleTimeout)
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// GoogleCredentialsFromToken converts an exchanged token into storable credentials.
func GoogleCredentialsFromToken(tok *oauth2.Token, clientID, clientSecret string) *GoogleCredentials {
	creds := &GoogleCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	if !tok.Expiry.IsZero() {
		creds.TokenExpiry = tok.Expiry.Format(time.RFC3339)
	}
	return creds
}

// NewGoogleTokenSource creates an auto-refreshing token source from stored credentials.
func NewGoogleTokenSource(ctx context.Context, creds *GoogleCredentials) oauth2.TokenSource {
	expiry, _ := time.Parse(time.RFC3339, creds.TokenExpiry)
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       expiry,
		TokenType:    "Bearer",
	}
	return googleConfig(creds.ClientID, creds.ClientSecret, "").TokenSource(ctx, token)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
