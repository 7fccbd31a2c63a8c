package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/esipilot/esikit/config/dotenv"
)

// LoadOptions defines options for loading configuration from environment variables.
type LoadOptions struct {
	Prefix string // Prefix to prepend to environment variable names (default: "ESIKIT_")
}

// Load populates a struct from the .env file and environment variables using
// reflection. Field tags determine the variable names:
//
//   - `env:"VAR_NAME"`: maps the field to the environment variable
//   - `env:"VAR_NAME,default:value"`: default used when the variable is unset
//   - `env:"VAR_NAME,required"`: Load fails when the variable is unset
//
// Variable names are prefixed with LoadOptions.Prefix (default "ESIKIT_").
//
// Example:
//
//	type Config struct {
//	    DatabaseURL string `env:"DATABASE_URL,required"`
//	    Port        int    `env:"PORT,default:8080"`
//	    Timeout     time.Duration `env:"TIMEOUT,default:30s"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
func Load(cfg interface{}, opts ...LoadOptions) error {
	options := LoadOptions{Prefix: "ESIKIT_"} // Default
	if len(opts) > 0 {
		options = opts[0]
	}
	// Silently try to load .env file, ignore if not found
	dotenv.Load()

	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: Load expects a pointer to a struct, got %T", cfg)
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}

		parts := strings.Split(envTag, ",")
		envName := parts[0]
		defaultValue := ""
		required := false

		for _, part := range parts[1:] {
			switch {
			case strings.HasPrefix(part, "default:"):
				defaultValue = strings.TrimPrefix(part, "default:")
			case part == "required":
				required = true
			}
		}

		fullEnvName := options.Prefix + envName
		value := os.Getenv(fullEnvName)
		if value == "" {
			value = defaultValue
		}
		if value == "" && required {
			return fmt.Errorf("config: required variable %s is not set", fullEnvName)
		}

		if value != "" {
			if err := setFieldValue(v.Field(i), value); err != nil {
				return fmt.Errorf("config: %s: %w", fullEnvName, err)
			}
		}
	}

	return nil
}

// setFieldValue converts the string environment value to the field's type.
// Supported types: string, int, int64, bool, time.Duration.
func setFieldValue(field reflect.Value, value string) error {
	// Check for time.Duration first
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		// Skip unsupported field types silently
		return nil
	}
	return nil
}
