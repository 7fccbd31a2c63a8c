// Package config provides environment-based configuration loading for esikit packages.
//
// Configuration is declared as plain structs with `env` tags and populated
// with Load. A .env file in the working directory is read first (without
// overriding real environment variables), then each tagged field is filled
// from the (prefixed) environment.
//
// # Basic Usage
//
//	type Config struct {
//	    BaseURL string        `env:"API_BASE_URL,required"`
//	    Timeout time.Duration `env:"HTTP_TIMEOUT,default:30s"`
//	    Debug   bool          `env:"DEBUG,default:false"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// By default variable names are prefixed with "ESIKIT_", so the example
// above reads ESIKIT_API_BASE_URL, ESIKIT_HTTP_TIMEOUT and ESIKIT_DEBUG.
// Pass LoadOptions{Prefix: "..."} to change or drop the prefix.
//
// # Supported Field Types
//
//   - string
//   - int, int64
//   - bool
//   - time.Duration (parsed with time.ParseDuration, e.g. "5m", "30s")
//
// Fields without an `env` tag are left untouched.
package config
