package wakfulog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/wakfulog/wakfulog-go/internal/parser"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/tracker"
)

// Source selects how new log lines are obtained.
type Source string

// Sources.
const (
	// SourcePoll reopens the file on every tick and reads from a byte offset.
	SourcePoll Source = "poll"
	// SourceFollow keeps the file open and follows it in the background.
	SourceFollow Source = "follow"
)

// DefaultPollInterval is the default tick interval of Run.
const DefaultPollInterval = 250 * time.Millisecond

// Option configures a Monitor using the functional options pattern.
type Option func(*monitorConfig)

// MetricsRecorder receives counters from every tick. The internal/metrics
// package provides a Prometheus implementation.
type MetricsRecorder interface {
	LinesRead(n int)
	Duplicates(n int)
	EventsApplied(evs []event.Event)
	LogAvailable(ok bool)
}

type monitorConfig struct {
	logPath          string
	source           Source
	lineSource       LineSource
	pollInterval     time.Duration
	dedupWindow      time.Duration
	comboTimeout     time.Duration
	flashDuration    time.Duration
	courrouxDuration time.Duration
	defs             *combo.Definitions
	startAtEnd       bool
	maxReadBytes     int64
	logger           *slog.Logger
	metrics          MetricsRecorder
	clock            func() time.Time
}

func defaultMonitorConfig() *monitorConfig {
	return &monitorConfig{
		source:       SourcePoll,
		pollInterval: DefaultPollInterval,
		dedupWindow:  parser.DefaultDedupWindow,
		comboTimeout: tracker.DefaultComboTimeout,
		clock:        time.Now,
	}
}

func applyOptions(opts []Option) *monitorConfig {
	cfg := defaultMonitorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *monitorConfig) validate() error {
	if c.lineSource == nil && c.logPath == "" {
		return ErrLogPathRequired
	}
	if c.source != SourcePoll && c.source != SourceFollow {
		return fmt.Errorf("unknown source %q (want %q or %q)", c.source, SourcePoll, SourceFollow)
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.pollInterval)
	}
	if c.dedupWindow < 0 {
		return fmt.Errorf("dedup window must be non-negative, got %v", c.dedupWindow)
	}
	if c.flashDuration < 0 {
		return fmt.Errorf("flash duration must be non-negative, got %v", c.flashDuration)
	}
	if c.courrouxDuration < 0 {
		return fmt.Errorf("courroux duration must be non-negative, got %v", c.courrouxDuration)
	}
	if c.maxReadBytes < 0 {
		return fmt.Errorf("max read bytes must be non-negative, got %d", c.maxReadBytes)
	}
	return nil
}

// WithLogPath sets the log file to follow.
func WithLogPath(path string) Option {
	return func(c *monitorConfig) {
		c.logPath = path
	}
}

// WithSource selects SourcePoll (default) or SourceFollow.
func WithSource(s Source) Option {
	return func(c *monitorConfig) {
		c.source = s
	}
}

// WithLineSource replaces the file-based source entirely. The log path
// is then only used in error messages.
func WithLineSource(src LineSource) Option {
	return func(c *monitorConfig) {
		c.lineSource = src
	}
}

// WithPollInterval sets the tick interval of Run.
// Default: 250ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.pollInterval = d
	}
}

// WithDedupWindow sets how long an identical message is treated as a
// duplicate. Zero disables duplicate suppression.
// Default: 500ms.
func WithDedupWindow(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.dedupWindow = d
	}
}

// WithComboTimeout sets how long combo progress survives without a new
// step, both on the log's timestamps and on the monitor clock. Zero or a
// negative value disables the timeout.
// Default: 30s.
func WithComboTimeout(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.comboTimeout = d
	}
}

// WithFlashDuration sets how long a completed combo stays reported.
// Default: 1.5s.
func WithFlashDuration(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.flashDuration = d
	}
}

// WithCourrouxDuration makes the Courroux flag expire on its own.
// Zero (default) keeps it until consumed.
func WithCourrouxDuration(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.courrouxDuration = d
	}
}

// WithDefinitions sets the spell and combo definitions.
// If defs is nil, the embedded defaults are used.
func WithDefinitions(defs *combo.Definitions) Option {
	return func(c *monitorConfig) {
		c.defs = defs
	}
}

// WithStartAtEnd skips the content already in the log when it is first
// opened, so only new lines are parsed.
func WithStartAtEnd(v bool) Option {
	return func(c *monitorConfig) {
		c.startAtEnd = v
	}
}

// WithMaxReadBytes bounds how much one tick reads with SourcePoll.
// Zero uses the reader's default (4 MiB).
func WithMaxReadBytes(n int64) Option {
	return func(c *monitorConfig) {
		c.maxReadBytes = n
	}
}

// WithLogger sets a custom logger for debug output.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *monitorConfig) {
		c.logger = logger
	}
}

// WithMetrics sets a recorder fed on every tick.
func WithMetrics(r MetricsRecorder) Option {
	return func(c *monitorConfig) {
		c.metrics = r
	}
}

// WithClock sets the clock used for combo deadlines, flag expiry and lines
// without a timestamp. If now is nil, this option has no effect.
func WithClock(now func() time.Time) Option {
	return func(c *monitorConfig) {
		if now != nil {
			c.clock = now
		}
	}
}
