// Package oauth builds provider consent URLs for the sign-in buttons.
// The authorization code the provider sends back is exchanged by the
// backend (/user/google, /user/github/callback); nothing here ever
// touches tokens.
package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Provider wraps one OAuth application's config for URL building
type Provider struct {
	name string
	cfg  oauth2.Config
}

// Google creates a Google provider. Empty arguments fall back to the
// OAUTH2_GOOGLE_* environment variables.
func Google(clientID, clientSecret, redirectURL string) *Provider {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	}
	if redirectURL == "" {
		redirectURL = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))
	}
	return &Provider{
		name: "google",
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoints.Google,
		},
	}
}

// Github creates a GitHub provider. Empty arguments fall back to the
// OAUTH2_GITHUB_* environment variables.
func Github(clientID, clientSecret, redirectURL string) *Provider {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET"))
	}
	if redirectURL == "" {
		redirectURL = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CALLBACK_URL"))
	}
	return &Provider{
		name: "github",
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoints.GitHub,
		},
	}
}

// Name returns the provider name ("google", "github")
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the provider consent URL bound to state
func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// NewState returns a random state value for CSRF binding of the callback
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// VerifyCallback checks the echoed state and extracts the authorization
// code from the provider redirect's query
func VerifyCallback(query url.Values, wantState string) (string, error) {
	if wantState == "" || query.Get("state") != wantState {
		return "", fmt.Errorf("oauth state mismatch")
	}
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("missing authorization code")
	}
	return code, nil
}
