package refresher

import (
	"time"

	"github.com/esipilot/esikit/config"
)

// Config holds refresher configuration
type Config struct {
	// Name identifies this schedule in the persisted state table, so
	// several schedules can share one database
	Name string `env:"REFRESHER_NAME,default:token-refresh"`

	// Interval between sweeps
	Interval time.Duration `env:"REFRESHER_INTERVAL,default:5m"`

	// Lookahead selects credentials expiring within this window. Zero
	// means one interval, so tokens are renewed before the next sweep
	// would find them expired.
	Lookahead time.Duration `env:"REFRESHER_LOOKAHEAD"`
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
	if c.Name == "" {
		c.Name = "token-refresh"
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Lookahead <= 0 {
		c.Lookahead = c.Interval
	}
	return c
}
