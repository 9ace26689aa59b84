package parser

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wakfulog/wakfulog-go/internal/textfold"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// maxChargeCases is the longest approach a Charge reports.
const maxChargeCases = 3

// chargeWindow is how many lines may separate a Charge cast from its
// approach message before the cast is counted at 1 PA.
const chargeWindow = 3

// maxReported rejects absurd gauge values read from a line.
const maxReported = 1000

var parenthesized = regexp.MustCompile(`\s*\([^)]*\)\s*`)

// Iop produces Concentration, Courroux and Préparation updates and drives
// the combo machine from spell casts.
type Iop struct {
	defs     *combo.Definitions
	machine  *combo.Machine
	courroux time.Duration
	log      *slog.Logger
	pending  *pendingCharge
}

type pendingCharge struct {
	spell string
	lines int
}

// NewIop returns an Iop parser. courroux is how long a Courroux flag stays
// up without being consumed (0 = until cleared).
func NewIop(defs *combo.Definitions, comboTimeout, courroux time.Duration, log *slog.Logger) *Iop {
	if log == nil {
		log = discardLogger
	}
	return &Iop{
		defs:     defs,
		machine:  combo.NewMachine(defs, event.Iop, comboTimeout),
		courroux: courroux,
		log:      log,
	}
}

// Class implements ClassParser.
func (p *Iop) Class() event.Class { return event.Iop }

// Parse implements ClassParser.
func (p *Iop) Parse(line RawLine, m Match) []event.Event {
	at := line.Time

	switch m.Rule.Kind {
	case KindSpellCast:
		name := cleanSpellName(m.Groups["spell"])
		if name == "" {
			return nil
		}
		if textfold.Equal(name, "Charge") {
			// Cost depends on the distance, reported on a later line.
			out := p.Flush(at)
			p.pending = &pendingCharge{spell: name}
			return out
		}
		return p.cast(name, nil, at)

	case KindApproach:
		if p.pending == nil {
			return nil
		}
		cases, ok := m.Int("cases")
		if !ok || cases < 1 || cases > maxChargeCases {
			return nil
		}
		spell := p.pending.spell
		p.pending = nil
		return p.cast(spell, &event.Cost{PA: cases + 1}, at)

	case KindGaugeValue:
		v, ok := m.Int("value")
		if !ok || v > maxReported {
			return nil
		}
		out := []event.Event{event.NewGaugeSet(event.Iop, m.Rule.Gauge, v, at)}
		if m.Rule.Gauge == event.Courroux {
			if v > 0 {
				out = append(out, event.NewFlagDetected(event.Iop, event.Courroux, p.courroux, at))
			} else {
				out = append(out, event.NewFlagCleared(event.Iop, event.Courroux, at))
			}
		}
		return out

	case KindCourrouxConsumed:
		return []event.Event{
			event.NewGaugeSet(event.Iop, event.Courroux, 0, at),
			event.NewFlagCleared(event.Iop, event.Courroux, at),
		}
	}
	return nil
}

// Reset implements ClassParser. A pending Charge is dropped.
func (p *Iop) Reset(reason string, at time.Time) []event.Event {
	p.pending = nil
	return p.machine.Reset(reason, at)
}

// Expire times out combo progress on the log's own clock.
func (p *Iop) Expire(at time.Time) []event.Event {
	return p.machine.Expire(at)
}

// ResetCombo abandons combo progress only; a pending Charge is kept.
func (p *Iop) ResetCombo(reason string, at time.Time) []event.Event {
	return p.machine.Reset(reason, at)
}

// tick counts a line seen while a Charge waits for its approach message.
func (p *Iop) tick(at time.Time) []event.Event {
	if p.pending == nil {
		return nil
	}
	p.pending.lines++
	if p.pending.lines < chargeWindow {
		return nil
	}
	return p.Flush(at)
}

// Flush counts a pending Charge at 1 PA.
func (p *Iop) Flush(at time.Time) []event.Event {
	if p.pending == nil {
		return nil
	}
	spell := p.pending.spell
	p.pending = nil
	return p.cast(spell, &event.Cost{PA: 1}, at)
}

// ComboState returns the combo machine's progress.
func (p *Iop) ComboState() combo.State {
	return p.machine.State()
}

func (p *Iop) cast(name string, cost *event.Cost, at time.Time) []event.Event {
	canonical, spell, known := p.defs.Spell(name)
	if known {
		name = canonical
	}
	if !known && cost == nil && !strings.Contains(textfold.Fold(name), "iop") {
		p.log.Debug("spell dropped", "spell", name, "error", ErrConfigMissing)
		return nil
	}

	var c *event.Cost
	switch {
	case cost != nil:
		c = cost
	case known:
		c = &spell.Cost
	}

	out := []event.Event{
		{Kind: event.SpellCast, Class: event.Iop, Time: at, Spell: name, Cost: c},
		event.NewGaugeSet(event.Iop, event.Preparation, 0, at),
	}

	gauges := make([]string, 0, len(spell.Gains))
	for g := range spell.Gains {
		gauges = append(gauges, g)
	}
	sort.Strings(gauges)
	for _, g := range gauges {
		out = append(out, event.NewGaugeDelta(event.Iop, g, spell.Gains[g], at))
	}

	if c == nil {
		p.log.Debug("spell cost unknown, combo not tracked", "spell", name, "error", ErrConfigMissing)
		return out
	}
	return append(out, p.machine.Cast(name, *c, at)...)
}

// cleanSpellName drops parenthesized qualifiers such as "(Critiques)" and
// trailing punctuation.
func cleanSpellName(s string) string {
	s = parenthesized.ReplaceAllString(s, " ")
	s = strings.TrimRight(s, ".,;:!?\t ")
	return strings.Join(strings.Fields(s), " ")
}
