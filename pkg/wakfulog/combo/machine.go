package combo

import (
	"time"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// Reasons attached to ComboReset events.
const (
	ReasonMismatch  = "mismatch"
	ReasonTimeout   = "timeout"
	ReasonTurnEnd   = "turn_end"
	ReasonCombatEnd = "combat_end"
	ReasonSession   = "new_session"
	ReasonManual    = "manual"
)

// Status is the coarse state of a Machine.
type Status int

const (
	Idle Status = iota
	InProgress
)

func (s Status) String() string {
	if s == InProgress {
		return "in_progress"
	}
	return "idle"
}

// State is the progress of a Machine. The zero value is Idle.
type State struct {
	Status Status

	// Candidates are the ids of combos still consistent with the casts seen
	// so far, in definition order. The first one is reported in events.
	Candidates []string

	// Next is the index of the step expected next.
	Next int

	// Deadline is when progress lapses. Zero when no timeout is configured.
	Deadline time.Time
}

// Machine matches spell casts against combo definitions.
//
// Several combos may share a prefix; all of them are followed until one
// completes or none matches. The spell that completes a combo may also
// start the next one. A Machine is not safe for concurrent use.
type Machine struct {
	defs    *Definitions
	class   event.Class
	timeout time.Duration
	state   State
}

// NewMachine returns an idle machine. A timeout <= 0 disables expiry.
func NewMachine(defs *Definitions, class event.Class, timeout time.Duration) *Machine {
	return &Machine{defs: defs, class: class, timeout: timeout}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	s := m.state
	s.Candidates = append([]string(nil), s.Candidates...)
	return s
}

// Reset abandons any combo in progress. It returns a ComboReset event when
// there was one, nil otherwise.
func (m *Machine) Reset(reason string, at time.Time) []event.Event {
	if m.state.Status != InProgress {
		return nil
	}
	ev := event.Event{
		Kind:    event.ComboReset,
		Class:   m.class,
		Time:    at,
		ComboID: m.state.Candidates[0],
		Reason:  reason,
	}
	if c, ok := m.defs.Combo(ev.ComboID); ok {
		ev.ComboName = c.Name
		ev.TotalSteps = len(c.Steps)
	}
	m.state = State{}
	return []event.Event{ev}
}

// Expire resets progress whose deadline is before at, with reason timeout.
func (m *Machine) Expire(at time.Time) []event.Event {
	if m.state.Status != InProgress || m.state.Deadline.IsZero() || !at.After(m.state.Deadline) {
		return nil
	}
	return m.Reset(ReasonTimeout, at)
}

// Cast feeds one spell cast and returns the resulting combo events.
func (m *Machine) Cast(spell string, cost event.Cost, at time.Time) []event.Event {
	out := m.Expire(at)

	if m.state.Status == InProgress {
		evs, ok := m.advance(m.state.Candidates, m.state.Next, spell, cost, at)
		if ok {
			return append(out, evs...)
		}
		out = append(out, m.Reset(ReasonMismatch, at)...)
	}

	evs, _ := m.advance(m.defs.Starting(spell, cost), 0, spell, cost, at)
	return append(out, evs...)
}

// advance tries to match the cast as step idx of each candidate.
func (m *Machine) advance(ids []string, idx int, spell string, cost event.Cost, at time.Time) ([]event.Event, bool) {
	var matched, completed []string
	for _, id := range ids {
		c, ok := m.defs.Combo(id)
		if !ok || idx >= len(c.Steps) || !c.Steps[idx].Matches(spell, cost) {
			continue
		}
		if idx+1 == len(c.Steps) {
			completed = append(completed, id)
		} else {
			matched = append(matched, id)
		}
	}

	if len(completed) > 0 {
		c, _ := m.defs.Combo(completed[0])
		out := []event.Event{
			m.stepEvent(c, idx, spell, cost, at),
			{
				Kind:       event.ComboComplete,
				Class:      m.class,
				Time:       at,
				ComboID:    c.ID,
				ComboName:  c.Name,
				TotalSteps: len(c.Steps),
				Spell:      spell,
			},
		}
		m.state = State{}
		if idx > 0 {
			// The finishing spell opens the next combo.
			next, _ := m.advance(m.defs.Starting(spell, cost), 0, spell, cost, at)
			out = append(out, next...)
		}
		return out, true
	}

	if len(matched) == 0 {
		return nil, false
	}

	m.state = State{
		Status:     InProgress,
		Candidates: matched,
		Next:       idx + 1,
	}
	if m.timeout > 0 {
		m.state.Deadline = at.Add(m.timeout)
	}
	c, _ := m.defs.Combo(matched[0])
	return []event.Event{m.stepEvent(c, idx, spell, cost, at)}, true
}

func (m *Machine) stepEvent(c Combo, idx int, spell string, cost event.Cost, at time.Time) event.Event {
	return event.Event{
		Kind:       event.ComboStep,
		Class:      m.class,
		Time:       at,
		ComboID:    c.ID,
		ComboName:  c.Name,
		Step:       idx,
		TotalSteps: len(c.Steps),
		Spell:      spell,
		Cost:       &cost,
	}
}
