package parser

import (
	"time"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// partiPrisCost is the Affûtage spent by Parti pris, only when above it.
const partiPrisCost = 100

// Cra produces Affûtage, Précision and Balise affûtée updates and the
// Pointe affûtée flag.
type Cra struct{}

// NewCra returns a Cra parser.
func NewCra() *Cra { return &Cra{} }

// Class implements ClassParser.
func (p *Cra) Class() event.Class { return event.Cra }

// Parse implements ClassParser.
func (p *Cra) Parse(line RawLine, m Match) []event.Event {
	at := line.Time

	switch m.Rule.Kind {
	case KindGaugeValue:
		v, ok := m.Int("value")
		if !ok || v > maxReported {
			return nil
		}
		return []event.Event{event.NewGaugeSet(event.Cra, m.Rule.Gauge, v, at)}

	case KindBaliseValue:
		v, ok := m.Int("value")
		if !ok || v > maxReported {
			return nil
		}
		return []event.Event{event.NewGaugeSet(event.Cra, event.BaliseAffutee, v, at)}

	case KindBaliseCast:
		return []event.Event{event.NewGaugeDelta(event.Cra, event.BaliseAffutee, -1, at)}

	case KindPointeReady:
		return []event.Event{event.NewFlagDetected(event.Cra, event.PointeAffutee, 0, at)}

	case KindPointeConsumed:
		return []event.Event{event.NewFlagCleared(event.Cra, event.PointeAffutee, at)}

	case KindPartiPris:
		return []event.Event{event.NewGuardedDelta(event.Cra, event.Affutage, -partiPrisCost, partiPrisCost, at)}
	}
	return nil
}

// Reset implements ClassParser. The Cra parser keeps no transient state.
func (p *Cra) Reset(string, time.Time) []event.Event { return nil }
