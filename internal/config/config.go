// Package config resolves runtime settings from, in increasing priority:
// built-in defaults, the config file at ~/.duet/config.yaml, a .env file in
// the working directory, and DUET_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultPollInterval = 3 * time.Second
	defaultLogLevel     = "info"
)

// Config holds everything the client needs to run.
type Config struct {
	APIURL       string
	StatePath    string
	PollInterval time.Duration
	LogLevel     string
	Session      string
}

// fileConfig is the on-disk YAML shape. Durations are written as strings
// ("3s", "500ms").
type fileConfig struct {
	APIURL       string `yaml:"api_url"`
	StatePath    string `yaml:"state_path"`
	PollInterval string `yaml:"poll_interval"`
	LogLevel     string `yaml:"log_level"`
	Session      string `yaml:"session"`
}

// Load builds the effective configuration. A missing config file or .env is
// not an error; a malformed config file is.
func Load() (*Config, error) {
	// .env values become environment variables unless already set.
	godotenv.Load()

	cfg := &Config{
		APIURL:       DefaultAPIURL,
		PollInterval: DefaultPollInterval,
		LogLevel:     defaultLogLevel,
	}

	if path, err := defaultConfigPath(); err == nil {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cfg.StatePath == "" {
		dir, err := stateDir()
		if err != nil {
			return nil, err
		}
		cfg.StatePath = filepath.Join(dir, "state.db")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.StatePath != "" {
		cfg.StatePath = fc.StatePath
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("parse config file %s: poll_interval: %w", path, err)
		}
		cfg.PollInterval = d
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.Session != "" {
		cfg.Session = fc.Session
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DUET_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("DUET_STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("DUET_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("DUET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DUET_SESSION"); v != "" {
		cfg.Session = v
	}
}

func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".duet"), nil
}

func defaultConfigPath() (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
