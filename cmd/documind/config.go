package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultServerURL = "http://localhost:8001"
	defaultTimeout   = 5 * time.Minute
	envServerURL     = "DOCUMIND_SERVER_URL"
)

type clientConfig struct {
	ServerURL      string  `toml:"server_url"`
	TimeoutSeconds int     `toml:"timeout"`
	TargetLanguage string  `toml:"target_language"`
	MinConfidence  float64 `toml:"min_confidence"`
}

func (c clientConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "documind", "config.toml"), nil
}

// loadClientConfig reads path, or the default location when path is empty. A missing default file is not an error.
func loadClientConfig(path string) (clientConfig, error) {
	cfg := clientConfig{ServerURL: defaultServerURL, TargetLanguage: "en"}

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if env := strings.TrimSpace(os.Getenv(envServerURL)); env != "" {
		cfg.ServerURL = env
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return cfg, fmt.Errorf("min_confidence must be between 0 and 1, got %v", cfg.MinConfidence)
	}
	return cfg, nil
}
