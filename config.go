package authkit

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains client configuration parameters, loaded from the
// environment
type Config struct {
	BaseURL           string        `env:"AUTHKIT_BASE_URL" envDefault:"http://localhost:3000"`
	RequestTimeout    time.Duration `env:"AUTHKIT_REQUEST_TIMEOUT" envDefault:"15s"`
	SessionCookieName string        `env:"AUTHKIT_SESSION_COOKIE" envDefault:"token"`
	OTPResendWindow   time.Duration `env:"AUTHKIT_OTP_RESEND_WINDOW" envDefault:"5m"`
	CachePath         string        `env:"AUTHKIT_CACHE_PATH"`
	Google            OAuthApp      `envPrefix:"AUTHKIT_GOOGLE_"`
	Github            OAuthApp      `envPrefix:"AUTHKIT_GITHUB_"`
}

// OAuthApp contains one OAuth application's registration
type OAuthApp struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
