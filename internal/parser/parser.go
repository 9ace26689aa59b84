// Package parser turns Wakfu log lines into state-update events.
//
// Lines are classified against a declarative catalog, then handed to the
// parser of the class the rule belongs to. The Parser type adds duplicate
// suppression and session tracking on top.
package parser

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// ErrConfigMissing is logged when a cast spell has no definition.
var ErrConfigMissing = errors.New("spell not in definitions")

// DefaultDedupWindow is how long an identical message is treated as a
// duplicate (two game windows logging the same fight).
const DefaultDedupWindow = 500 * time.Millisecond

// maxSeen bounds each dedup cache before stale entries are pruned.
const maxSeen = 256

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// ClassParser produces events for one class.
type ClassParser interface {
	Class() event.Class
	// Parse handles a line classified under one of the class's rules.
	Parse(line RawLine, m Match) []event.Event
	// Reset drops transient state and returns the resulting events.
	Reset(reason string, at time.Time) []event.Event
}

// Options configures a Parser.
type Options struct {
	Definitions      *combo.Definitions // nil = combo.Default()
	DedupWindow      time.Duration      // <= 0 disables duplicate suppression
	ComboTimeout     time.Duration      // <= 0 disables combo expiry in the machine
	CourrouxDuration time.Duration
	Logger           *slog.Logger
}

// Stats counts what the parser has seen.
type Stats struct {
	Lines      uint64
	Recognized uint64
	Duplicates uint64
	Sessions   uint64
}

// Parser classifies lines and dispatches them to class parsers.
// It is not safe for concurrent use.
type Parser struct {
	classes map[event.Class]ClassParser
	iop     *Iop
	window  time.Duration
	log     *slog.Logger

	seen    map[event.Class]map[string]time.Time
	last    time.Time
	session string
	stats   Stats
}

// New returns a Parser for every supported class.
func New(opts Options) *Parser {
	if opts.Definitions == nil {
		opts.Definitions = combo.Default()
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger
	}

	iop := NewIop(opts.Definitions, opts.ComboTimeout, opts.CourrouxDuration, opts.Logger)
	return &Parser{
		classes: map[event.Class]ClassParser{
			event.Iop: iop,
			event.Cra: NewCra(),
		},
		iop:     iop,
		window:  opts.DedupWindow,
		log:     opts.Logger,
		seen:    make(map[event.Class]map[string]time.Time),
		session: uuid.NewString(),
	}
}

// Session returns the current session id. A new one is drawn whenever the
// log goes back in time.
func (p *Parser) Session() string { return p.session }

// Stats returns counters since the parser was created.
func (p *Parser) Stats() Stats { return p.stats }

// ComboState returns the Iop combo machine's progress.
func (p *Parser) ComboState() combo.State { return p.iop.ComboState() }

// Parse handles one line and returns the events it produced, in order.
// Unrecognized lines produce nothing.
func (p *Parser) Parse(line RawLine) []event.Event {
	p.stats.Lines++

	var out []event.Event
	if line.HasTime {
		if !p.last.IsZero() && line.Time.Before(p.last) {
			out = append(out, p.newSession(line.Time)...)
		}
		p.last = line.Time
	}
	out = append(out, p.iop.Expire(line.Time)...)

	m, ok := Classify(line)
	if ok && p.duplicate(m.Rule.Class, line) {
		p.stats.Duplicates++
		p.log.Debug("duplicate line dropped", "rule", m.Rule.ID, "line", line.Text)
		return stamp(out, line)
	}
	if !ok || m.Rule.Kind != KindApproach {
		out = append(out, p.iop.tick(line.Time)...)
	}
	if !ok {
		return stamp(out, line)
	}
	p.stats.Recognized++

	switch m.Rule.Kind {
	case KindCombatEnd:
		for _, c := range event.Classes {
			out = append(out, p.classes[c].Reset(combo.ReasonCombatEnd, line.Time)...)
		}
		out = append(out, event.NewCombatEnd(line.Time))
	case KindTurnCarry:
		for _, c := range event.Classes {
			out = append(out, p.classes[c].Reset(combo.ReasonTurnEnd, line.Time)...)
		}
	default:
		out = append(out, p.classes[m.Rule.Class].Parse(line, m)...)
	}
	return stamp(out, line)
}

// Flush resolves anything still waiting for a follow-up line, such as a
// Charge whose approach message never came. Call it when input ends.
func (p *Parser) Flush(at time.Time) []event.Event {
	return p.iop.Flush(at)
}

// Reset drops the transient state of one class (manual reset).
func (p *Parser) Reset(class event.Class, at time.Time) []event.Event {
	cp, ok := p.classes[class]
	if !ok {
		return nil
	}
	return cp.Reset(combo.ReasonManual, at)
}

// ExpireCombo abandons the combo progress of class with reason timeout,
// when it lapsed on a clock other than the log's.
func (p *Parser) ExpireCombo(class event.Class, at time.Time) []event.Event {
	if class != event.Iop {
		return nil
	}
	return p.iop.ResetCombo(combo.ReasonTimeout, at)
}

func (p *Parser) newSession(at time.Time) []event.Event {
	prev := p.session
	p.session = uuid.NewString()
	p.stats.Sessions++
	p.seen = make(map[event.Class]map[string]time.Time)
	p.log.Info("log went back in time, starting new session",
		"previous", prev, "session", p.session, "at", at, "last", p.last)

	var out []event.Event
	for _, c := range event.Classes {
		out = append(out, p.classes[c].Reset(combo.ReasonSession, at)...)
	}
	return out
}

// duplicate reports whether the same message was seen for class within the
// dedup window, and records it otherwise.
func (p *Parser) duplicate(class event.Class, line RawLine) bool {
	if p.window <= 0 {
		return false
	}
	bucket := p.seen[class]
	if bucket == nil {
		bucket = make(map[string]time.Time)
		p.seen[class] = bucket
	}

	if prev, ok := bucket[line.Body]; ok {
		if d := line.Time.Sub(prev); d >= 0 && d < p.window {
			return true
		}
	}
	bucket[line.Body] = line.Time

	if len(bucket) > maxSeen {
		for k, t := range bucket {
			if line.Time.Sub(t) >= p.window {
				delete(bucket, k)
			}
		}
	}
	return false
}

func stamp(evs []event.Event, line RawLine) []event.Event {
	for i := range evs {
		if evs[i].RawLine == "" {
			evs[i].RawLine = line.Text
		}
	}
	return evs
}
