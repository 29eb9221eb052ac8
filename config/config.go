package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnv loads .env and then the optional CONFIG_FILE overlay.
// Variables already present in the environment are never overwritten.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env", "err", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		n, err := ApplyFile(path)
		if err != nil {
			slog.Warn("could not load config file", "path", path, "err", err)
			return
		}
		slog.Info("config file loaded", "path", path, "keys", n)
	}
}

// ApplyFile reads a flat YAML mapping of KEY: value pairs and exports every key
// not already set. It returns how many keys were exported.
func ApplyFile(path string) (int, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return 0, fmt.Errorf("parse config file: %w", err)
	}
	n := 0
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, stringify(v)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
