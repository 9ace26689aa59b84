// Package tracker holds the current state of each class and applies
// events to it.
//
// The tracker is the single writer of class state. Readers get deep copies
// through Snapshot, so an overlay may poll from another goroutine while
// the poll loop applies events.
package tracker

import (
	"sync"
	"time"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// Defaults.
const (
	DefaultComboTimeout  = 30 * time.Second
	DefaultFlashDuration = 1500 * time.Millisecond
)

// Options configures a Tracker.
type Options struct {
	// Classes declares gauges and flags. Nil means DefaultClasses().
	Classes []ClassDef
	// ComboTimeout resets combo progress when no step arrives in time.
	// Zero means DefaultComboTimeout; negative disables the timeout.
	ComboTimeout time.Duration
	// FlashDuration is how long a completed combo is reported.
	// Zero means DefaultFlashDuration.
	FlashDuration time.Duration
	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time
}

type gauge struct {
	def   GaugeDef
	value int
}

type flag struct {
	active  bool
	expires time.Time // zero: until cleared
}

type progress struct {
	inProgress bool
	id, name   string
	next       int
	total      int
	deadline   time.Time
}

type completed struct {
	id, name string
	total    int
	at       time.Time
}

type classState struct {
	def       ClassDef
	gauges    map[string]*gauge
	flags     map[string]*flag
	combo     progress
	completed *completed
	lastSpell *SpellSnapshot
	updated   time.Time
}

func newClassState(def ClassDef) *classState {
	cs := &classState{
		def:    def,
		gauges: make(map[string]*gauge, len(def.Gauges)),
		flags:  make(map[string]*flag, len(def.Flags)),
	}
	for _, g := range def.Gauges {
		cs.gauges[g.Name] = &gauge{def: g, value: g.Min}
	}
	for _, f := range def.Flags {
		cs.flags[f] = &flag{}
	}
	return cs
}

func (cs *classState) reset() {
	for _, g := range cs.gauges {
		g.value = g.def.Min
	}
	for _, f := range cs.flags {
		*f = flag{}
	}
	cs.combo = progress{}
	cs.completed = nil
	cs.lastSpell = nil
}

// Tracker holds ClassState for every declared class.
type Tracker struct {
	mu      sync.RWMutex
	classes map[event.Class]*classState
	order   []event.Class
	active  event.Class

	timeout time.Duration
	flash   time.Duration
	now     func() time.Time
}

// New returns a Tracker with every gauge at its minimum.
func New(opts Options) *Tracker {
	if opts.Classes == nil {
		opts.Classes = DefaultClasses()
	}
	if opts.ComboTimeout == 0 {
		opts.ComboTimeout = DefaultComboTimeout
	}
	if opts.FlashDuration == 0 {
		opts.FlashDuration = DefaultFlashDuration
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	t := &Tracker{
		classes: make(map[event.Class]*classState, len(opts.Classes)),
		timeout: opts.ComboTimeout,
		flash:   opts.FlashDuration,
		now:     opts.Clock,
	}
	for _, def := range opts.Classes {
		t.classes[def.Class] = newClassState(def)
		t.order = append(t.order, def.Class)
	}
	return t
}

// Apply applies events in order. Before that, combo progress past its
// deadline and expired flags are cleared.
//
// The returned events are notifications derived while applying: a
// ComboReset for each lapsed combo and every ComboComplete.
// Events for unknown classes or gauges are ignored.
func (t *Tracker) Apply(events []event.Event) []event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := t.expire(now)
	for _, ev := range events {
		out = append(out, t.apply(ev, now)...)
	}
	return out
}

// Expire clears combo progress past its deadline and expired flags without
// applying anything. It returns a ComboReset for each lapsed combo.
func (t *Tracker) Expire() []event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expire(t.now())
}

func (t *Tracker) expire(now time.Time) []event.Event {
	var out []event.Event
	for _, c := range t.order {
		cs := t.classes[c]
		if cs.combo.inProgress && !cs.combo.deadline.IsZero() && now.After(cs.combo.deadline) {
			out = append(out, event.Event{
				Kind:       event.ComboReset,
				Class:      c,
				Time:       now,
				ComboID:    cs.combo.id,
				ComboName:  cs.combo.name,
				TotalSteps: cs.combo.total,
				Reason:     combo.ReasonTimeout,
			})
			cs.combo = progress{}
		}
		for _, f := range cs.flags {
			if f.active && !f.expires.IsZero() && !now.Before(f.expires) {
				*f = flag{}
			}
		}
	}
	return out
}

func (t *Tracker) apply(ev event.Event, now time.Time) []event.Event {
	if ev.Kind == event.CombatEnd {
		for _, cs := range t.classes {
			cs.reset()
			cs.updated = now
		}
		return nil
	}

	cs, ok := t.classes[ev.Class]
	if !ok {
		return nil
	}
	t.active = ev.Class
	cs.updated = now

	switch ev.Kind {
	case event.GaugeSet:
		if g, ok := cs.gauges[ev.Gauge]; ok {
			g.value = clamp(ev.Value, g.def.Min, g.def.Max)
		}

	case event.GaugeDelta:
		g, ok := cs.gauges[ev.Gauge]
		if !ok || (ev.Above != nil && g.value <= *ev.Above) {
			return nil
		}
		g.value = clamp(g.value+ev.Delta, g.def.Min, g.def.Max)

	case event.FlagDetected:
		f, ok := cs.flags[ev.Flag]
		if !ok {
			f = &flag{}
			cs.flags[ev.Flag] = f
		}
		f.active = true
		f.expires = time.Time{}
		if ev.Duration > 0 {
			f.expires = now.Add(ev.Duration)
		}

	case event.FlagCleared:
		if f, ok := cs.flags[ev.Flag]; ok {
			*f = flag{}
		}

	case event.SpellCast:
		s := &SpellSnapshot{Name: ev.Spell}
		if ev.Cost != nil {
			c := *ev.Cost
			s.Cost = &c
		}
		cs.lastSpell = s

	case event.ComboStep:
		switch {
		case ev.Step == 0:
			cs.combo = progress{inProgress: true, next: 1}
		case cs.combo.inProgress && ev.Step == cs.combo.next:
			cs.combo.next++
		default:
			cs.combo = progress{}
			return nil
		}
		cs.combo.id = ev.ComboID
		cs.combo.name = ev.ComboName
		cs.combo.total = ev.TotalSteps
		cs.combo.deadline = time.Time{}
		if t.timeout > 0 {
			cs.combo.deadline = now.Add(t.timeout)
		}

	case event.ComboComplete:
		// Only a combo followed here through its last step can complete.
		p := cs.combo
		cs.combo = progress{}
		if !p.inProgress || p.id != ev.ComboID || p.next != ev.TotalSteps {
			return nil
		}
		cs.completed = &completed{id: ev.ComboID, name: ev.ComboName, total: ev.TotalSteps, at: now}
		return []event.Event{ev}

	case event.ComboReset:
		cs.combo = progress{}
	}
	return nil
}

// Reset returns a class to its initial state (manual reset).
// It reports false for an unknown class.
func (t *Tracker) Reset(class event.Class) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cs, ok := t.classes[class]
	if !ok {
		return false
	}
	cs.reset()
	cs.updated = t.now()
	return true
}

// ActiveClass returns the class of the most recent class event, or "" if
// none was seen yet.
func (t *Tracker) ActiveClass() event.Class {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Classes returns the tracked classes in declaration order.
func (t *Tracker) Classes() []event.Class {
	return append([]event.Class(nil), t.order...)
}

// Snapshot returns a copy of one class's state. Progress past its deadline
// and expired flags are reported as cleared even before the next Apply.
func (t *Tracker) Snapshot(class event.Class) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cs, ok := t.classes[class]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(cs, t.now()), true
}

// Snapshots returns a copy of every class's state, keyed by class.
func (t *Tracker) Snapshots() map[event.Class]Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	out := make(map[event.Class]Snapshot, len(t.classes))
	for c, cs := range t.classes {
		out[c] = t.snapshot(cs, now)
	}
	return out
}

func (t *Tracker) snapshot(cs *classState, now time.Time) Snapshot {
	s := Snapshot{
		Class:     cs.def.Class,
		Gauges:    make(map[string]GaugeSnapshot, len(cs.gauges)),
		Flags:     make(map[string]FlagSnapshot, len(cs.flags)),
		Combo:     ComboSnapshot{Status: ComboIdle},
		UpdatedAt: cs.updated,
	}

	for name, g := range cs.gauges {
		s.Gauges[name] = GaugeSnapshot{
			Value:     g.value,
			Min:       g.def.Min,
			Max:       g.def.Max,
			Threshold: g.def.Threshold,
			Over:      g.def.Threshold > 0 && g.value > g.def.Threshold,
		}
	}

	for name, f := range cs.flags {
		fs := FlagSnapshot{Active: f.active}
		if f.active && !f.expires.IsZero() {
			if rem := f.expires.Sub(now); rem > 0 {
				fs.Remaining = rem
			} else {
				fs.Active = false
			}
		}
		s.Flags[name] = fs
	}

	// A finished combo flashes even if its last spell already opened the next one.
	p := cs.combo
	switch {
	case cs.completed != nil && now.Sub(cs.completed.at) < t.flash:
		s.Combo = ComboSnapshot{
			Status:     ComboCompleted,
			ComboID:    cs.completed.id,
			ComboName:  cs.completed.name,
			Step:       cs.completed.total,
			TotalSteps: cs.completed.total,
		}
	case p.inProgress && (p.deadline.IsZero() || !now.After(p.deadline)):
		s.Combo = ComboSnapshot{
			Status:     ComboInProgress,
			ComboID:    p.id,
			ComboName:  p.name,
			Step:       p.next,
			TotalSteps: p.total,
		}
		if !p.deadline.IsZero() {
			s.Combo.Remaining = p.deadline.Sub(now)
		}
	}

	if cs.lastSpell != nil {
		ls := *cs.lastSpell
		if ls.Cost != nil {
			c := *ls.Cost
			ls.Cost = &c
		}
		s.LastSpell = &ls
	}
	return s
}
