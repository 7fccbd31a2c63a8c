package entities

import (
	"time"

	"github.com/esipilot/esikit/config"
)

// Config holds entity resolver configuration
type Config struct {
	// TTL for resolved mappings. Names are stable enough that a long TTL
	// is safe.
	TTL time.Duration `env:"ENTITIES_TTL,default:24h"`

	// IDsPath is the bulk name-to-ID endpoint
	IDsPath string `env:"ENTITIES_IDS_PATH,default:/universe/ids/"`

	// NamesPath is the bulk ID-to-name endpoint
	NamesPath string `env:"ENTITIES_NAMES_PATH,default:/universe/names/"`
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
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.IDsPath == "" {
		c.IDsPath = "/universe/ids/"
	}
	if c.NamesPath == "" {
		c.NamesPath = "/universe/names/"
	}
	return c
}
