package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads an optional .env file and an optional YAML file named by
// CONFIG_FILE, then builds the config from the environment. Variables already
// set in the process environment always win over both files.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// ApplyFile exports the scalar keys of a flat YAML document as environment
// variables that are not already set, e.g.
//
//	HTTP_ADDR: ":9090"
//	RATE_LIMIT_ANALYZE_REQUESTS: 20
func ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	values, err := parseFile(raw)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func parseFile(raw []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			out[key] = v
		case bool:
			out[key] = strconv.FormatBool(v)
		case int:
			out[key] = strconv.Itoa(v)
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("key %s: expected a scalar value", key)
		}
	}
	return out, nil
}
