package tracker

import (
	"time"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// ComboStatus is the combo display state.
type ComboStatus string

const (
	ComboIdle       ComboStatus = "idle"
	ComboInProgress ComboStatus = "in_progress"
	// ComboCompleted is shown for the flash window after a combo finishes.
	ComboCompleted ComboStatus = "completed"
)

// Snapshot is a copy of one class's state. It shares nothing with the
// tracker and serializes to JSON as is.
type Snapshot struct {
	Class     event.Class              `json:"class"`
	Gauges    map[string]GaugeSnapshot `json:"gauges"`
	Flags     map[string]FlagSnapshot  `json:"flags"`
	Combo     ComboSnapshot            `json:"combo"`
	LastSpell *SpellSnapshot           `json:"last_spell,omitempty"`
	UpdatedAt time.Time                `json:"updated_at,omitzero"`
}

// GaugeSnapshot is a gauge value with its bounds.
type GaugeSnapshot struct {
	Value     int  `json:"value"`
	Min       int  `json:"min"`
	Max       int  `json:"max"`
	Threshold int  `json:"threshold,omitempty"`
	Over      bool `json:"over_threshold,omitempty"`
}

// FlagSnapshot is a flag's state. Remaining is zero for flags without expiry.
type FlagSnapshot struct {
	Active    bool          `json:"active"`
	Remaining time.Duration `json:"remaining,omitempty"`
}

// ComboSnapshot is the combo progress. Step counts the steps already done.
type ComboSnapshot struct {
	Status     ComboStatus   `json:"status"`
	ComboID    string        `json:"combo_id,omitempty"`
	ComboName  string        `json:"combo_name,omitempty"`
	Step       int           `json:"step"`
	TotalSteps int           `json:"total_steps,omitempty"`
	Remaining  time.Duration `json:"remaining,omitempty"`
}

// SpellSnapshot is the last spell cast.
type SpellSnapshot struct {
	Name string      `json:"name"`
	Cost *event.Cost `json:"cost,omitempty"`
}

// Gauge returns the value of a gauge, or 0 when the class has no such gauge.
func (s Snapshot) Gauge(name string) int {
	return s.Gauges[name].Value
}

// Flag reports whether a flag is active.
func (s Snapshot) Flag(name string) bool {
	return s.Flags[name].Active
}
