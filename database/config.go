package database

import (
	"github.com/esipilot/esikit/config"
)

// Config holds database configuration
type Config struct {
	// Driver: postgres, mysql, sqlite, libsql, turso
	Driver string `env:"DB_DRIVER,default:sqlite"`

	// Connection details (for server databases)
	Host     string `env:"DB_HOST,default:localhost"`
	Port     string `env:"DB_PORT"`
	Database string `env:"DB_DATABASE,default:esikit.db"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`

	// URL for a direct connection string (overrides individual settings)
	URL string `env:"DB_URL"`

	// Auth token for Turso/LibSQL
	AuthToken string `env:"DB_AUTH_TOKEN"`

	// SSLMode for PostgreSQL
	SSLMode string `env:"DB_SSL_MODE,default:disable"`

	// Connection pool settings (seconds for the lifetimes)
	MaxOpenConns    int `env:"DB_MAX_OPEN_CONNS,default:25"`
	MaxIdleConns    int `env:"DB_MAX_IDLE_CONNS,default:5"`
	ConnMaxLifetime int `env:"DB_CONN_MAX_LIFETIME,default:300"`
	ConnMaxIdleTime int `env:"DB_CONN_MAX_IDLE_TIME,default:60"`

	// Debug enables GORM query logging
	Debug bool `env:"DB_DEBUG,default:false"`
}

// GetConfig loads configuration from environment variables
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
