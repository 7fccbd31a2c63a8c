package sso

import (
	"fmt"
	"time"

	"github.com/esipilot/esikit/config"
)

// Config defines the SSO client configuration
type Config struct {
	// ClientID is the OAuth application's client ID
	ClientID string `env:"SSO_CLIENT_ID,required"`

	// ClientSecret is the OAuth application's client secret
	ClientSecret string `env:"SSO_CLIENT_SECRET,required"`

	// RedirectURL is the callback URL after authentication
	RedirectURL string `env:"SSO_REDIRECT_URL,required"`

	// AuthURL is the provider's browser authorization endpoint
	AuthURL string `env:"SSO_AUTH_URL,default:https://login.eveonline.com/v2/oauth/authorize"`

	// TokenURL is the provider's token endpoint (exchange and refresh)
	TokenURL string `env:"SSO_TOKEN_URL,default:https://login.eveonline.com/v2/oauth/token"`

	// VerifyURL is the provider's identity introspection endpoint, used
	// when the access token is not a decodable JWT
	VerifyURL string `env:"SSO_VERIFY_URL,default:https://login.eveonline.com/oauth/verify"`

	// Scopes is a space-separated list of default scopes
	Scopes string `env:"SSO_SCOPES"`

	// HTTPTimeout is the timeout for calls to the provider
	HTTPTimeout time.Duration `env:"SSO_HTTP_TIMEOUT,default:30s"`

	// UserAgent identifies this application to the provider
	UserAgent string `env:"SSO_USER_AGENT,default:esikit"`
}

// GetConfig returns config loaded from environment with optional LoadOptions
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load sso config: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("%w: client ID is required", ErrInvalidConfig)
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("%w: client secret is required", ErrInvalidConfig)
	}
	if cfg.RedirectURL == "" {
		return fmt.Errorf("%w: redirect URL is required", ErrInvalidConfig)
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return fmt.Errorf("%w: auth and token URLs are required", ErrInvalidConfig)
	}
	return nil
}
