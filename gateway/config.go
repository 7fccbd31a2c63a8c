package gateway

import (
	"time"

	"github.com/esipilot/esikit/config"
)

// Config holds gateway configuration
type Config struct {
	// BaseURL of the upstream game API, without a trailing slash
	BaseURL string `env:"GATEWAY_BASE_URL,default:https://esi.evetech.net/latest"`

	// UserAgent sent on every upstream request. Upstream operators ask for
	// a contact address in it.
	UserAgent string `env:"GATEWAY_USER_AGENT,default:esikit (https://github.com/esipilot/esikit)"`

	// HTTPTimeout for upstream requests
	HTTPTimeout time.Duration `env:"GATEWAY_HTTP_TIMEOUT,default:30s"`

	// DefaultTTL applies when the upstream response carries no usable
	// Expires or Cache-Control header
	DefaultTTL time.Duration `env:"GATEWAY_DEFAULT_TTL,default:5m"`

	// StaleGrace keeps expired entries in the cache past their logical
	// expiry so revalidation can reuse their bodies on a 304
	StaleGrace time.Duration `env:"GATEWAY_STALE_GRACE,default:24h"`

	// Rate limiting for upstream requests
	RateLimit    int           `env:"GATEWAY_RATE_LIMIT,default:100"`
	RateInterval time.Duration `env:"GATEWAY_RATE_INTERVAL,default:1m"`
	RateBurst    int           `env:"GATEWAY_RATE_BURST,default:200"`
}

// GetConfig loads configuration from environment variables
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://esi.evetech.net/latest"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Minute
	}
	if c.StaleGrace <= 0 {
		c.StaleGrace = 24 * time.Hour
	}
	return c
}
