// Package combo loads Iop spell and combo definitions and tracks combo
// progress as an explicit state machine.
package combo

import (
	"github.com/wakfulog/wakfulog-go/internal/textfold"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// File represents the structure of a YAML definitions file.
//
// Example YAML file:
//
//	version: 1
//	spells:
//	  Épée de Feu:
//	    cost: {PA: 3}
//	    gains: {Concentration: 10}
//	  Bond:
//	    cost: {PM: 1}
//	combos:
//	  - id: vol_de_vie
//	    name: Vol de Vie
//	    steps:
//	      - spell: Bond
//	      - cost: {PA: 3}
//	      - cost: {PA: 3}
type File struct {
	// Version is the file format version. Currently only version 1 is supported.
	Version int `yaml:"version"`

	// Spells maps a spell name, as written in the log, to its definition.
	Spells map[string]Spell `yaml:"spells"`

	// Combos is the ordered list of combos. Order decides which combo is
	// reported when several candidates match the same spell.
	Combos []Combo `yaml:"combos"`
}

// Spell describes one spell.
type Spell struct {
	Cost event.Cost `yaml:"cost"`
	Icon string     `yaml:"icon,omitempty"`

	// Gains lists gauge increments applied when the spell is cast,
	// keyed by gauge name (e.g. Concentration).
	Gains map[string]int `yaml:"gains,omitempty"`
}

// Combo is an ordered sequence of steps.
type Combo struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon,omitempty"`
	Steps []Step `yaml:"steps"`
}

// Step is one element of a combo. It names a spell, a cost, or both; when
// both are set a cast must satisfy both.
type Step struct {
	Spell string      `yaml:"spell,omitempty"`
	Cost  *event.Cost `yaml:"cost,omitempty"`
}

// Matches reports whether a cast of spell with the given cost satisfies the step.
func (s Step) Matches(spell string, cost event.Cost) bool {
	if s.Spell != "" && !textfold.Equal(s.Spell, spell) {
		return false
	}
	if s.Cost != nil && *s.Cost != cost {
		return false
	}
	return s.Spell != "" || s.Cost != nil
}

// Definitions is a validated, read-only view of a File.
// It is safe for concurrent use.
type Definitions struct {
	spells map[string]Spell  // folded name -> spell
	names  map[string]string // folded name -> name as written in the file
	combos []Combo
	byID   map[string]int
}

// New validates f and builds Definitions from it.
func New(f *File) (*Definitions, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	d := &Definitions{
		spells: make(map[string]Spell, len(f.Spells)),
		names:  make(map[string]string, len(f.Spells)),
		combos: make([]Combo, len(f.Combos)),
		byID:   make(map[string]int, len(f.Combos)),
	}
	for name, sp := range f.Spells {
		key := textfold.Fold(name)
		d.spells[key] = sp
		d.names[key] = name
	}
	for i, c := range f.Combos {
		steps := make([]Step, len(c.Steps))
		copy(steps, c.Steps)
		c.Steps = steps
		if c.Name == "" {
			c.Name = c.ID
		}
		d.combos[i] = c
		d.byID[c.ID] = i
	}
	return d, nil
}

// Spell looks up a spell by name, ignoring case and accents.
// The returned name is the one written in the definitions.
func (d *Definitions) Spell(name string) (string, Spell, bool) {
	key := textfold.Fold(name)
	sp, ok := d.spells[key]
	if !ok {
		return "", Spell{}, false
	}
	return d.names[key], sp, true
}

// Combo returns the combo with the given id.
func (d *Definitions) Combo(id string) (Combo, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Combo{}, false
	}
	return d.combos[i], true
}

// Combos returns all combos in definition order.
func (d *Definitions) Combos() []Combo {
	out := make([]Combo, len(d.combos))
	copy(out, d.combos)
	return out
}

// SpellNames returns the spell names as written in the definitions.
func (d *Definitions) SpellNames() []string {
	out := make([]string, 0, len(d.names))
	for _, n := range d.names {
		out = append(out, n)
	}
	return out
}

// Starting returns the ids of combos whose first step matches the cast.
func (d *Definitions) Starting(spell string, cost event.Cost) []string {
	var ids []string
	for _, c := range d.combos {
		if c.Steps[0].Matches(spell, cost) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
