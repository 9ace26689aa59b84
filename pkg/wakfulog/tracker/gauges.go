package tracker

import "github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"

// GaugeDef declares a gauge and its bounds.
type GaugeDef struct {
	Name string
	Min  int
	Max  int
	// Threshold is a display hint passed through to snapshots; the tracker
	// does not act on it. Zero means none.
	Threshold int
}

// ClassDef declares what the tracker keeps for one class.
type ClassDef struct {
	Class  event.Class
	Gauges []GaugeDef
	Flags  []string
}

// DefaultClasses returns the built-in gauges and flags for Iop and Cra.
func DefaultClasses() []ClassDef {
	return []ClassDef{
		{
			Class: event.Iop,
			Gauges: []GaugeDef{
				{Name: event.Concentration, Min: 0, Max: 100},
				{Name: event.Courroux, Min: 0, Max: 5},
				{Name: event.Preparation, Min: 0, Max: 40},
			},
			Flags: []string{event.Courroux},
		},
		{
			Class: event.Cra,
			Gauges: []GaugeDef{
				{Name: event.Affutage, Min: 0, Max: 200},
				{Name: event.Precision, Min: 0, Max: 250, Threshold: 200},
				{Name: event.BaliseAffutee, Min: 0, Max: 10},
			},
			Flags: []string{event.PointeAffutee},
		},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
