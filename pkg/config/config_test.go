package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source != DefaultSource {
		t.Errorf("expected default source %q, got %q", DefaultSource, cfg.Source)
	}
	if cfg.PollInterval != 0 {
		t.Errorf("continuous polling should be off by default, got %v", cfg.PollInterval.Std())
	}
	if cfg.RefreshDelay.Std() != time.Second {
		t.Errorf("expected 1s refresh delay, got %v", cfg.RefreshDelay.Std())
	}
	if !cfg.UI.LegendEnabled() {
		t.Error("legend should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Source != DefaultSource {
		t.Errorf("expected default config, got source %q", cfg.Source)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
source: https://queue.example.com
poll_interval: 5s
refresh_delay: 1500ms
http_timeout: 3

ui:
  chart_legend: false
  theme: dark

log:
  file: ~/qdash.log
  format: json

metrics:
  addr: ":9464"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source != "https://queue.example.com" {
		t.Errorf("source=%q", cfg.Source)
	}
	if cfg.PollInterval.Std() != 5*time.Second {
		t.Errorf("poll_interval=%v, want 5s", cfg.PollInterval.Std())
	}
	if cfg.RefreshDelay.Std() != 1500*time.Millisecond {
		t.Errorf("refresh_delay=%v, want 1.5s", cfg.RefreshDelay.Std())
	}
	if cfg.HTTPTimeout.Std() != 3*time.Second {
		t.Errorf("bare number should be seconds, got %v", cfg.HTTPTimeout.Std())
	}
	if cfg.UI.LegendEnabled() {
		t.Error("legend should be disabled")
	}
	if cfg.Metrics.Addr != ":9464" {
		t.Errorf("metrics addr=%q", cfg.Metrics.Addr)
	}
	home, _ := os.UserHomeDir()
	if cfg.Log.File != filepath.Join(home, "qdash.log") {
		t.Errorf("expected expanded log path, got %q", cfg.Log.File)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("QDASH_SOURCE", "file:///tmp/jobs.json")
	t.Setenv("QDASH_POLL_INTERVAL", "2s")
	t.Setenv("QDASH_METRICS_ADDR", "127.0.0.1:9000")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Source != "file:///tmp/jobs.json" {
		t.Errorf("source=%q", cfg.Source)
	}
	if cfg.PollInterval.Std() != 2*time.Second {
		t.Errorf("poll interval=%v", cfg.PollInterval.Std())
	}
	if cfg.Metrics.Addr != "127.0.0.1:9000" {
		t.Errorf("metrics addr=%q", cfg.Metrics.Addr)
	}

	t.Setenv("QDASH_HTTP_TIMEOUT", "nope")
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for invalid env duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty source", func(c *Config) { c.Source = " " }},
		{"negative interval", func(c *Config) { c.PollInterval = Duration(-time.Second) }},
		{"interval too small", func(c *Config) { c.PollInterval = Duration(time.Millisecond) }},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.PollInterval = Duration(3 * time.Second)
	legend := false
	cfg.UI.ChartLegend = &legend

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.PollInterval.Std() != 3*time.Second {
		t.Errorf("poll interval=%v", loaded.PollInterval.Std())
	}
	if loaded.UI.LegendEnabled() {
		t.Error("legend setting lost in round trip")
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigPath(); got != "/tmp/xdg/qdash/config.yaml" {
		t.Errorf("ConfigPath()=%q", got)
	}
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	if got := StateDir(); got != "/tmp/state/qdash" {
		t.Errorf("StateDir()=%q", got)
	}
}
