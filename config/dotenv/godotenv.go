// Package dotenv loads environment variables from .env files.
//
// It is a small subset of the godotenv feature set, covering KEY=VALUE
// lines, comments, quoted values, and the common "export KEY=VALUE" form.
package dotenv

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Load reads the given .env files and sets the variables they define,
// without overriding variables that are already set in the environment.
// With no arguments it loads ".env" from the current directory.
func Load(filenames ...string) error {
	return load(false, filenames...)
}

// Overload behaves like Load but overrides variables that are already set.
func Overload(filenames ...string) error {
	return load(true, filenames...)
}

func load(overload bool, filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, filename := range filenames {
		f, err := os.Open(filename)
		if err != nil {
			return err
		}

		envMap, err := Parse(f)
		f.Close()
		if err != nil {
			return err
		}

		for key, value := range envMap {
			if _, exists := os.LookupEnv(key); exists && !overload {
				continue
			}
			os.Setenv(key, value)
		}
	}

	return nil
}

// Parse reads env definitions from an io.Reader and returns them as a map.
func Parse(r io.Reader) (map[string]string, error) {
	envMap := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		parsed, err := Unmarshal(line)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			envMap[k] = v
		}
	}

	return envMap, scanner.Err()
}

// Unmarshal parses a single env line into a (possibly empty) key/value map.
// Blank lines and comments yield an empty map, not an error.
func Unmarshal(line string) (map[string]string, error) {
	result := make(map[string]string)

	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return result, nil
	}

	line = strings.TrimPrefix(line, "export ")

	idx := strings.Index(line, "=")
	if idx < 0 {
		return result, nil
	}

	key := strings.TrimSpace(line[:idx])
	value := strings.TrimSpace(line[idx+1:])

	// Strip surrounding quotes and trailing unquoted comments
	switch {
	case len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"':
		value = value[1 : len(value)-1]
		value = strings.ReplaceAll(value, `\n`, "\n")
		value = strings.ReplaceAll(value, `\"`, `"`)
	case len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'':
		value = value[1 : len(value)-1]
	default:
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
	}

	if key != "" {
		result[key] = value
	}

	return result, nil
}
