package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tapedeck configuration.
type Config struct {
	Name string `yaml:"name"`

	// Tape transport
	Transport TransportConfig `yaml:"transport"`

	// Page transitions
	Navigation NavigationConfig `yaml:"navigation"`

	// Frame source
	Clock ClockConfig `yaml:"clock"`

	// Page catalog
	Pages PagesConfig `yaml:"pages"`

	Logging LoggingConfig `yaml:"logging"`
}

// TransportConfig configures the tape transport.
type TransportConfig struct {
	LoadLatency string  `yaml:"load_latency"`
	FrameRate   int     `yaml:"frame_rate"` // timecode frames per second
	Length      float64 `yaml:"length"`     // seconds, 0 = derive from the catalog
}

// NavigationConfig configures page transitions. Thresholds are fractions
// of the transition duration.
type NavigationConfig struct {
	TransitionDuration string  `yaml:"transition_duration"`
	WatchdogTimeout    string  `yaml:"watchdog_timeout"`
	SettleDelay        string  `yaml:"settle_delay"`
	SeekAt             float64 `yaml:"seek_at"`
	ArriveAt           float64 `yaml:"arrive_at"`
}

// ClockConfig configures the frame source.
type ClockConfig struct {
	FrameInterval string `yaml:"frame_interval"` // real-time frame period
	ScriptStep    string `yaml:"script_step"`    // virtual frame step for scripts
}

// PagesConfig points at the page catalog.
type PagesConfig struct {
	Path  string `yaml:"path"` // empty = built-in catalog
	Watch bool   `yaml:"watch"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "tapedeck",

		Transport: TransportConfig{
			LoadLatency: "1200ms",
			FrameRate:   30,
		},

		Navigation: NavigationConfig{
			TransitionDuration: "1500ms",
			WatchdogTimeout:    "5s",
			SettleDelay:        "300ms",
			SeekAt:             0.2,
			ArriveAt:           0.8,
		},

		Clock: ClockConfig{
			FrameInterval: "16ms",
			ScriptStep:    "16ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("TAPEDECK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv("TAPEDECK_PAGES"); path != "" {
		c.Pages.Path = path
	}
	if d := os.Getenv("TAPEDECK_TRANSITION_DURATION"); d != "" {
		c.Navigation.TransitionDuration = d
	}
	if d := os.Getenv("TAPEDECK_WATCHDOG_TIMEOUT"); d != "" {
		c.Navigation.WatchdogTimeout = d
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetLoadLatency returns the tape load latency as a duration.
func (c *Config) GetLoadLatency() time.Duration {
	return parseDuration(c.Transport.LoadLatency, 1200*time.Millisecond)
}

// GetTransitionDuration returns the page transition duration.
func (c *Config) GetTransitionDuration() time.Duration {
	return parseDuration(c.Navigation.TransitionDuration, 1500*time.Millisecond)
}

// GetWatchdogTimeout returns the transition watchdog timeout.
func (c *Config) GetWatchdogTimeout() time.Duration {
	return parseDuration(c.Navigation.WatchdogTimeout, 5*time.Second)
}

// GetSettleDelay returns the delay between arrival and the settle to Paused.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDuration(c.Navigation.SettleDelay, 300*time.Millisecond)
}

// GetFrameInterval returns the real-time frame period.
func (c *Config) GetFrameInterval() time.Duration {
	return parseDuration(c.Clock.FrameInterval, 16*time.Millisecond)
}

// GetScriptStep returns the virtual frame step used by scripts.
func (c *Config) GetScriptStep() time.Duration {
	return parseDuration(c.Clock.ScriptStep, 16*time.Millisecond)
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	durations := []struct {
		name      string
		value     string
		allowZero bool
	}{
		{"transport.load_latency", c.Transport.LoadLatency, true},
		{"navigation.transition_duration", c.Navigation.TransitionDuration, false},
		{"navigation.watchdog_timeout", c.Navigation.WatchdogTimeout, false},
		{"navigation.settle_delay", c.Navigation.SettleDelay, true},
		{"clock.frame_interval", c.Clock.FrameInterval, false},
		{"clock.script_step", c.Clock.ScriptStep, false},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		if v < 0 || (v == 0 && !d.allowZero) {
			return fmt.Errorf("invalid %s %q: must be positive", d.name, d.value)
		}
	}

	n := c.Navigation
	if !(n.SeekAt > 0 && n.SeekAt < n.ArriveAt && n.ArriveAt <= 1) {
		return fmt.Errorf("invalid navigation thresholds: need 0 < seek_at (%v) < arrive_at (%v) <= 1", n.SeekAt, n.ArriveAt)
	}
	if c.GetWatchdogTimeout() <= c.GetTransitionDuration() {
		return fmt.Errorf("watchdog_timeout %s must be longer than transition_duration %s",
			c.GetWatchdogTimeout(), c.GetTransitionDuration())
	}

	if c.Transport.FrameRate <= 0 {
		return fmt.Errorf("invalid transport.frame_rate: %d", c.Transport.FrameRate)
	}
	if c.Transport.Length < 0 {
		return fmt.Errorf("invalid transport.length: %v", c.Transport.Length)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}
