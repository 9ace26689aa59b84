// Package config loads the CLI configuration.
//
// Layers, lowest precedence first:
//  1. defaults (New)
//  2. YAML file: the path given to Load, else WAKFULOG_CONFIG
//  3. environment variables prefixed WAKFULOG_ (WAKFULOG_POLL_INTERVAL -> poll_interval)
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds. These allow errors.Is from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Source names, mirrored from the library.
const (
	SourcePoll   = "poll"
	SourceFollow = "follow"
)

// Config contains process configuration.
type Config struct {
	// LogPath is the game log file or its directory.
	LogPath string `koanf:"log_path"`
	// Source is "poll" or "follow".
	Source string `koanf:"source"`
	// FromStart reads the existing log content instead of only new lines.
	FromStart bool `koanf:"from_start"`

	PollInterval     time.Duration `koanf:"poll_interval"`
	DedupWindow      time.Duration `koanf:"dedup_window"`
	ComboTimeout     time.Duration `koanf:"combo_timeout"` // 0 disables
	FlashDuration    time.Duration `koanf:"flash_duration"`
	CourrouxDuration time.Duration `koanf:"courroux_duration"`

	// DefinitionsFile overrides the embedded spell and combo definitions.
	DefinitionsFile string `koanf:"definitions_file"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFile sends diagnostics to a rotated file instead of stderr.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`
	LogMaxAgeDays int    `koanf:"log_max_age_days"`

	// MetricsAddr enables the Prometheus endpoint, e.g. "127.0.0.1:9464".
	MetricsAddr string `koanf:"metrics_addr"`

	// Overlay settings are kept for the overlay process and not interpreted here.
	Overlay Overlay `koanf:"overlay"`
}

// Overlay holds display settings owned by the overlay.
type Overlay struct {
	Opacity     float64             `koanf:"opacity" json:"opacity"`
	AlwaysOnTop bool                `koanf:"always_on_top" json:"always_on_top"`
	Positions   map[string]Position `koanf:"positions" json:"positions,omitempty"`
}

// Position is a window position in screen pixels.
type Position struct {
	X int `koanf:"x" json:"x"`
	Y int `koanf:"y" json:"y"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Source:        SourcePoll,
		PollInterval:  250 * time.Millisecond,
		DedupWindow:   500 * time.Millisecond,
		ComboTimeout:  30 * time.Second,
		FlashDuration: 1500 * time.Millisecond,
		LogLevel:      "info",
		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,
		Overlay: Overlay{
			Opacity:     0.9,
			AlwaysOnTop: true,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Source != SourcePoll && c.Source != SourceFollow {
		errs = append(errs, fmt.Errorf("source: must be %q or %q, got %q", SourcePoll, SourceFollow, c.Source))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval: must be positive, got %v", c.PollInterval))
	}
	if c.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("dedup_window: must not be negative, got %v", c.DedupWindow))
	}
	if c.FlashDuration < 0 {
		errs = append(errs, fmt.Errorf("flash_duration: must not be negative, got %v", c.FlashDuration))
	}
	if c.CourrouxDuration < 0 {
		errs = append(errs, fmt.Errorf("courroux_duration: must not be negative, got %v", c.CourrouxDuration))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation limits must not be negative"))
	}
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		errs = append(errs, fmt.Errorf("overlay.opacity: must be within [0,1], got %v", c.Overlay.Opacity))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
