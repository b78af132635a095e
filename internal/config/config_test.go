package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DUET_API_URL", "DUET_STATE_PATH", "DUET_POLL_INTERVAL", "DUET_LOG_LEVEL", "DUET_SESSION"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.StatePath == "" {
		t.Error("StatePath empty")
	}
	if filepath.Base(cfg.StatePath) != "state.db" {
		t.Errorf("StatePath = %q", cfg.StatePath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUET_API_URL", "https://api.example.com")
	t.Setenv("DUET_STATE_PATH", "/tmp/custom.db")
	t.Setenv("DUET_POLL_INTERVAL", "10s")
	t.Setenv("DUET_LOG_LEVEL", "debug")
	t.Setenv("DUET_SESSION", "abc-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.StatePath != "/tmp/custom.db" {
		t.Errorf("StatePath = %q", cfg.StatePath)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Session != "abc-123" {
		t.Errorf("Session = %q", cfg.Session)
	}
}

func TestLoadIgnoresBadPollInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUET_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", cfg.PollInterval)
	}
}

func TestApplyFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "api_url: https://file.example.com\nlog_level: warn\npoll_interval: 5s\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{APIURL: DefaultAPIURL, PollInterval: DefaultPollInterval, LogLevel: defaultLogLevel}
	if err := applyFile(cfg, path); err != nil {
		t.Fatalf("apply file: %v", err)
	}
	if cfg.APIURL != "https://file.example.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
}

func TestApplyFileMissingIsFine(t *testing.T) {
	cfg := &Config{}
	if err := applyFile(cfg, filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

func TestApplyFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_url: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := applyFile(&Config{}, path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvBeatsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUET_API_URL", "https://env.example.com")

	cfg := &Config{APIURL: "https://file.example.com"}
	applyEnv(cfg)
	if cfg.APIURL != "https://env.example.com" {
		t.Errorf("APIURL = %q, env should win", cfg.APIURL)
	}
}
