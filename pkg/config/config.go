// Package config handles loading and saving qdash configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/qdash/config.yaml
//   - State:  ~/.local/state/qdash/ (log file, chart exports)
//
// Precedence, highest first: command-line flags, QDASH_* environment
// variables, the config file, DefaultConfig.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSource is the address the job queue server listens on by default.
const DefaultSource = "http://localhost:5000"

// Duration is a time.Duration that reads and writes as "1s", "250ms", etc.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or a bare number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML writes the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UIConfig holds TUI preference settings.
type UIConfig struct {
	ChartLegend *bool  `yaml:"chart_legend,omitempty"` // Show the legend under the donut (default true)
	Theme       string `yaml:"theme,omitempty"`        // auto, dark, light
}

// LegendEnabled reports the effective legend setting.
func (u UIConfig) LegendEnabled() bool {
	return u.ChartLegend == nil || *u.ChartLegend
}

// LogConfig controls the structured event log.
type LogConfig struct {
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"` // text or json
	Level  string `yaml:"level,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9464"; empty disables the endpoint
}

// Config is the top-level configuration for qdash.
type Config struct {
	// Source is the job queue base URL, or file:///path/to/jobs.json.
	Source string `yaml:"source,omitempty"`
	// PollInterval enables continuous polling when > 0. The default of 0 polls
	// only at startup and after submissions.
	PollInterval Duration `yaml:"poll_interval,omitempty"`
	// RefreshDelay is how long to wait after a successful submission before
	// the follow-up poll.
	RefreshDelay Duration `yaml:"refresh_delay,omitempty"`
	// HTTPTimeout bounds every request to the job queue.
	HTTPTimeout Duration `yaml:"http_timeout,omitempty"`

	UI      UIConfig      `yaml:"ui,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source:       DefaultSource,
		RefreshDelay: Duration(time.Second),
		HTTPTimeout:  Duration(10 * time.Second),
		UI: UIConfig{
			Theme: "auto",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// ConfigDir returns the XDG config directory for qdash.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "qdash")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qdash")
}

// StateDir returns the XDG state directory for qdash.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "qdash")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "qdash")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.ApplyEnv()
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path and applies environment
// overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	cfg.Log.File = expandHome(cfg.Log.File)
	return cfg, nil
}

// ApplyEnv overrides fields from QDASH_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv("QDASH_SOURCE")); v != "" {
		c.Source = v
	}
	durations := []struct {
		name string
		dst  *Duration
	}{
		{"QDASH_POLL_INTERVAL", &c.PollInterval},
		{"QDASH_REFRESH_DELAY", &c.RefreshDelay},
		{"QDASH_HTTP_TIMEOUT", &c.HTTPTimeout},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.name))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = Duration(parsed)
	}
	if v := strings.TrimSpace(os.Getenv("QDASH_LOG_FILE")); v != "" {
		c.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("QDASH_METRICS_ADDR")); v != "" {
		c.Metrics.Addr = v
	}
	return nil
}

// Validate rejects settings the poll loop cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return fmt.Errorf("source is required")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	if c.PollInterval > 0 && c.PollInterval.Std() < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be at least 100ms, got %s", c.PollInterval.Std())
	}
	if c.RefreshDelay < 0 {
		return fmt.Errorf("refresh_delay must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be auto, dark or light, got %q", c.UI.Theme)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
