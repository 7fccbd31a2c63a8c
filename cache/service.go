package cache

import "fmt"

// New creates a cache instance for the configured driver.
func New(cfg Config) (Cache, error) {
	if cfg.Driver == "" {
		cfg.Driver = "memory"
	}

	switch cfg.Driver {
	case "memory", "builtin":
		return newMemoryCache(cfg), nil
	case "redis":
		return newRedisCache(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}
}

// NewFromEnv creates a cache instance from environment variables.
func NewFromEnv() (Cache, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}
