package wakfulog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wakfulog/wakfulog-go/internal/logreader"
	"github.com/wakfulog/wakfulog-go/internal/parser"
	"github.com/wakfulog/wakfulog-go/internal/tailer"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/tracker"
)

// RawLine is a decoded log line.
type RawLine = parser.RawLine

// Stats counts what the parser has seen.
type Stats = parser.Stats

// LineSource yields the lines appended since the previous Poll.
// Poll must not block.
type LineSource interface {
	Poll() ([]RawLine, error)
	Close() error
}

// Update is the outcome of one tick.
type Update struct {
	// Lines is how many lines were read.
	Lines int
	// Events are the parser's events, in log order.
	Events []event.Event
	// Notifications are derived by the tracker while applying: lapsed
	// combos (ComboReset with reason timeout) and completed combos.
	Notifications []event.Event
	// Session is the parser session the lines belong to.
	Session string
}

// Empty reports whether the tick produced nothing worth reporting.
func (u Update) Empty() bool {
	return len(u.Events) == 0 && len(u.Notifications) == 0
}

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Monitor wires a line source, the parser and the tracker.
//
// Tick, Flush, Reset and Close serialize on an internal lock; Snapshot and
// Snapshots may be called from any goroutine at any time.
type Monitor struct {
	cfg     monitorConfig
	log     *slog.Logger
	defs    *combo.Definitions
	parser  *parser.Parser
	tracker *tracker.Tracker

	mu          sync.Mutex
	src         LineSource
	path        string
	closed      bool
	unavailable bool
	duplicates  uint64
}

// NewMonitor creates a monitor using functional options.
// With SourceFollow the background tail starts here; otherwise nothing is
// opened until the first Tick.
func NewMonitor(opts ...Option) (*Monitor, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	log := cfg.logger
	if log == nil {
		log = discardLogger
	}
	defs := cfg.defs
	if defs == nil {
		defs = combo.Default()
	}
	trackerTimeout := cfg.comboTimeout
	if trackerTimeout <= 0 {
		trackerTimeout = -1
	}

	m := &Monitor{
		cfg:  *cfg,
		log:  log,
		defs: defs,
		path: cfg.logPath,
		parser: parser.New(parser.Options{
			Definitions:      defs,
			DedupWindow:      cfg.dedupWindow,
			ComboTimeout:     cfg.comboTimeout,
			CourrouxDuration: cfg.courrouxDuration,
			Logger:           log,
		}),
		tracker: tracker.New(tracker.Options{
			ComboTimeout:  trackerTimeout,
			FlashDuration: cfg.flashDuration,
			Clock:         cfg.clock,
		}),
		src: cfg.lineSource,
	}

	if m.src == nil {
		src, err := m.openSource(cfg.logPath)
		if err != nil {
			return nil, err
		}
		m.src = src
	}
	return m, nil
}

func (m *Monitor) openSource(path string) (LineSource, error) {
	switch m.cfg.source {
	case SourceFollow:
		tc := tailer.DefaultConfig()
		tc.FromStart = !m.cfg.startAtEnd
		t, err := tailer.New(path, tc)
		if err != nil {
			return nil, &PollError{Op: PollOpOpen, Path: path, Err: err}
		}
		return t, nil
	default:
		return logreader.New(path,
			logreader.WithStartAtEnd(m.cfg.startAtEnd),
			logreader.WithMaxReadBytes(m.cfg.maxReadBytes),
			logreader.WithClock(m.cfg.clock),
		), nil
	}
}

// Definitions returns the spell and combo definitions in use.
func (m *Monitor) Definitions() *combo.Definitions { return m.defs }

// LogPath returns the log file being followed.
func (m *Monitor) LogPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// SetLogPath switches to another log file and reads it from the start.
// Class state is kept.
func (m *Monitor) SetLogPath(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if r, ok := m.src.(*logreader.Reader); ok {
		r.SetPath(path)
		m.path = path
		return nil
	}
	if m.cfg.lineSource != nil {
		return errors.New("cannot change the path of a custom line source")
	}

	src, err := m.openSource(path)
	if err != nil {
		return err
	}
	if err := m.src.Close(); err != nil {
		m.log.Debug("closing previous source", "path", m.path, "error", err)
	}
	m.src = src
	m.path = path
	return nil
}

// Tick reads new lines, parses them and applies the events, in that order.
//
// A source failure is returned as a *PollError together with whatever was
// read before it; the monitor stays usable. Expired combo progress is
// cleared even when no line arrived.
func (m *Monitor) Tick(ctx context.Context) (Update, error) {
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Update{}, ErrMonitorClosed
	}

	lapsed := m.expire()

	lines, err := m.src.Poll()
	m.setAvailable(err)

	evs := make([]event.Event, 0, len(lines))
	for _, line := range lines {
		evs = append(evs, m.parser.Parse(line)...)
	}
	u := m.apply(evs)
	u.Notifications = append(lapsed, u.Notifications...)
	u.Lines = len(lines)

	if m.cfg.metrics != nil {
		m.cfg.metrics.LinesRead(len(lines))
	}

	if err != nil {
		return u, &PollError{Op: PollOpRead, Path: m.path, Err: err}
	}
	return u, nil
}

// Flush resolves events still waiting for a follow-up line, such as a
// Charge whose cost was never confirmed. Call it when input ends.
func (m *Monitor) Flush() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	lapsed := m.expire()
	u := m.apply(m.parser.Flush(m.cfg.clock()))
	u.Notifications = append(lapsed, u.Notifications...)
	return u
}

// expire lapses combos on the tracker clock and makes the parser's combo
// machine forget them too, so their later steps start over.
func (m *Monitor) expire() []event.Event {
	lapsed := m.tracker.Expire()
	for _, n := range lapsed {
		m.parser.ExpireCombo(n.Class, n.Time)
		m.log.Debug("combo timed out", "class", n.Class, "combo", n.ComboID)
	}
	return lapsed
}

func (m *Monitor) apply(evs []event.Event) Update {
	u := Update{
		Events:        evs,
		Notifications: m.tracker.Apply(evs),
		Session:       m.parser.Session(),
	}
	for _, ev := range evs {
		m.log.Debug("event", "kind", ev.Kind, "class", ev.Class, "event", ev.String())
	}

	if m.cfg.metrics != nil {
		stats := m.parser.Stats()
		m.cfg.metrics.Duplicates(int(stats.Duplicates - m.duplicates))
		m.duplicates = stats.Duplicates
		m.cfg.metrics.EventsApplied(evs)
	}
	return u
}

func (m *Monitor) setAvailable(err error) {
	if m.cfg.metrics != nil {
		m.cfg.metrics.LogAvailable(err == nil)
	}
	switch {
	case err != nil && !m.unavailable:
		m.unavailable = true
		m.log.Warn("log unavailable, retrying", "path", m.path, "error", err)
	case err == nil && m.unavailable:
		m.unavailable = false
		m.log.Info("log available again", "path", m.path)
	}
}

// Run calls Tick every poll interval until ctx is done, and calls fn with
// every update that produced events. Source errors are logged and retried.
// It returns ctx's error, or ErrMonitorClosed if the monitor was closed.
func (m *Monitor) Run(ctx context.Context, fn func(Update)) error {
	ticker := time.NewTicker(m.cfg.pollInterval)
	defer ticker.Stop()

	for {
		u, err := m.Tick(ctx)
		if err != nil {
			var pe *PollError
			if !errors.As(err, &pe) {
				return err
			}
		}
		if fn != nil && !u.Empty() {
			fn(u)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Reset returns one class to its initial state (manual reset).
// It reports false for an unknown class.
func (m *Monitor) Reset(class event.Class) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parser.Reset(class, m.cfg.clock())
	return m.tracker.Reset(class)
}

// Snapshot returns a copy of one class's current state.
func (m *Monitor) Snapshot(class event.Class) (tracker.Snapshot, bool) {
	return m.tracker.Snapshot(class)
}

// Snapshots returns a copy of every class's current state.
func (m *Monitor) Snapshots() map[event.Class]tracker.Snapshot {
	return m.tracker.Snapshots()
}

// ActiveClass returns the class seen most recently, or "" before any.
func (m *Monitor) ActiveClass() event.Class {
	return m.tracker.ActiveClass()
}

// Session returns the current parser session id.
func (m *Monitor) Session() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parser.Session()
}

// Stats returns parser counters.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parser.Stats()
}

// Close releases the line source. Safe to call multiple times.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.src.Close()
}
