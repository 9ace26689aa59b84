// Package event defines the state-update events produced by the class
// parsers and consumed by the tracker.
package event

import (
	"fmt"
	"time"
)

// Class identifies a character class.
type Class string

// Supported classes.
const (
	Iop Class = "iop"
	Cra Class = "cra"
)

// Classes lists every supported class in display order.
var Classes = []Class{Iop, Cra}

// Gauge and flag names, as written in the game log.
const (
	Concentration = "Concentration"
	Courroux      = "Courroux"
	Preparation   = "Préparation"
	Affutage      = "Affûtage"
	Precision     = "Précision"
	BaliseAffutee = "Balise affûtée"
	PointeAffutee = "Pointe affûtée"
)

// Kind tags an Event variant.
type Kind string

// Event kinds.
const (
	GaugeSet      Kind = "gauge_set"
	GaugeDelta    Kind = "gauge_delta"
	ComboStep     Kind = "combo_step"
	ComboComplete Kind = "combo_complete"
	ComboReset    Kind = "combo_reset"
	FlagDetected  Kind = "flag_detected"
	FlagCleared   Kind = "flag_cleared"
	SpellCast     Kind = "spell_cast"
	CombatEnd     Kind = "combat_end"
)

// Cost is the PA/PM/PW cost of a spell.
type Cost struct {
	PA int `json:"pa,omitempty" yaml:"PA,omitempty"`
	PM int `json:"pm,omitempty" yaml:"PM,omitempty"`
	PW int `json:"pw,omitempty" yaml:"PW,omitempty"`
}

// IsZero reports whether the cost is empty.
func (c Cost) IsZero() bool {
	return c == Cost{}
}

func (c Cost) String() string {
	s := ""
	add := func(n int, unit string) {
		if n == 0 {
			return
		}
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("%d%s", n, unit)
	}
	add(c.PA, "PA")
	add(c.PM, "PM")
	add(c.PW, "PW")
	if s == "" {
		return "free"
	}
	return s
}

// Event is a one-shot state update. Which fields are meaningful depends on Kind:
//
//	GaugeSet       Class, Gauge, Value
//	GaugeDelta     Class, Gauge, Delta, Above (optional guard)
//	ComboStep      Class, ComboID, Step (0-based), Spell
//	ComboComplete  Class, ComboID
//	ComboReset     Class, ComboID (may be empty), Reason
//	FlagDetected   Class, Flag, Duration (0 = until cleared)
//	FlagCleared    Class, Flag
//	SpellCast      Class, Spell, Cost
//	CombatEnd      (none)
type Event struct {
	Kind  Kind      `json:"kind"`
	Class Class     `json:"class,omitempty"`
	Time  time.Time `json:"time"`

	Gauge string `json:"gauge,omitempty"`
	Value int    `json:"value"`
	Delta int    `json:"delta,omitempty"`
	// Above makes a GaugeDelta conditional: it applies only while the
	// current value is strictly greater than *Above.
	Above *int `json:"above,omitempty"`

	Flag     string        `json:"flag,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`

	ComboID    string `json:"combo_id,omitempty"`
	ComboName  string `json:"combo_name,omitempty"`
	Step       int    `json:"step,omitempty"`
	TotalSteps int    `json:"total_steps,omitempty"`
	Reason     string `json:"reason,omitempty"`

	Spell string `json:"spell,omitempty"`
	Cost  *Cost  `json:"cost,omitempty"`

	RawLine string `json:"raw_line,omitempty"`
}

// NewGaugeSet returns a GaugeSet event.
func NewGaugeSet(class Class, gauge string, value int, at time.Time) Event {
	return Event{Kind: GaugeSet, Class: class, Gauge: gauge, Value: value, Time: at}
}

// NewGaugeDelta returns an unconditional GaugeDelta event.
func NewGaugeDelta(class Class, gauge string, delta int, at time.Time) Event {
	return Event{Kind: GaugeDelta, Class: class, Gauge: gauge, Delta: delta, Time: at}
}

// NewGuardedDelta returns a GaugeDelta that applies only while the gauge is above the guard.
func NewGuardedDelta(class Class, gauge string, delta, above int, at time.Time) Event {
	ev := NewGaugeDelta(class, gauge, delta, at)
	ev.Above = &above
	return ev
}

// NewFlagDetected returns a FlagDetected event.
func NewFlagDetected(class Class, flag string, d time.Duration, at time.Time) Event {
	return Event{Kind: FlagDetected, Class: class, Flag: flag, Duration: d, Time: at}
}

// NewFlagCleared returns a FlagCleared event.
func NewFlagCleared(class Class, flag string, at time.Time) Event {
	return Event{Kind: FlagCleared, Class: class, Flag: flag, Time: at}
}

// NewCombatEnd returns a CombatEnd event.
func NewCombatEnd(at time.Time) Event {
	return Event{Kind: CombatEnd, Time: at}
}

// String renders the event for logs and the pretty CLI format.
func (e Event) String() string {
	switch e.Kind {
	case GaugeSet:
		return fmt.Sprintf("%s %s = %d", e.Class, e.Gauge, e.Value)
	case GaugeDelta:
		if e.Above != nil {
			return fmt.Sprintf("%s %s %+d (if > %d)", e.Class, e.Gauge, e.Delta, *e.Above)
		}
		return fmt.Sprintf("%s %s %+d", e.Class, e.Gauge, e.Delta)
	case ComboStep:
		return fmt.Sprintf("%s combo %s step %d/%d: %s", e.Class, e.ComboID, e.Step+1, e.TotalSteps, e.Spell)
	case ComboComplete:
		return fmt.Sprintf("%s combo %s complete", e.Class, e.ComboID)
	case ComboReset:
		if e.ComboID == "" {
			return fmt.Sprintf("%s combo reset (%s)", e.Class, e.Reason)
		}
		return fmt.Sprintf("%s combo %s reset (%s)", e.Class, e.ComboID, e.Reason)
	case FlagDetected:
		if e.Duration > 0 {
			return fmt.Sprintf("%s %s ready (%s)", e.Class, e.Flag, e.Duration)
		}
		return fmt.Sprintf("%s %s ready", e.Class, e.Flag)
	case FlagCleared:
		return fmt.Sprintf("%s %s consumed", e.Class, e.Flag)
	case SpellCast:
		if e.Cost != nil {
			return fmt.Sprintf("%s cast %s (%s)", e.Class, e.Spell, e.Cost)
		}
		return fmt.Sprintf("%s cast %s", e.Class, e.Spell)
	case CombatEnd:
		return "combat end"
	}
	return string(e.Kind)
}
