package parser

import (
	"regexp"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// Kind is what a matched line means, independent of the exact wording.
type Kind int

const (
	KindCombatEnd Kind = iota + 1
	KindTurnCarry
	KindApproach
	KindSpellCast
	KindGaugeValue
	KindCourrouxConsumed
	KindBaliseValue
	KindBaliseCast
	KindPointeReady
	KindPointeConsumed
	KindPartiPris
)

var kindNames = map[Kind]string{
	KindCombatEnd:        "combat_end",
	KindTurnCarry:        "turn_carry",
	KindApproach:         "approach",
	KindSpellCast:        "spell_cast",
	KindGaugeValue:       "gauge_value",
	KindCourrouxConsumed: "courroux_consumed",
	KindBaliseValue:      "balise_value",
	KindBaliseCast:       "balise_cast",
	KindPointeReady:      "pointe_ready",
	KindPointeConsumed:   "pointe_consumed",
	KindPartiPris:        "parti_pris",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Rule is one row of the catalog. Patterns are written against the folded
// body: lower case, no accents.
type Rule struct {
	ID    string
	Class event.Class // empty for lines shared by every class
	Kind  Kind
	Gauge string // for KindGaugeValue
	re    *regexp.Regexp
}

func rule(id string, class event.Class, kind Kind, pattern string) Rule {
	return Rule{ID: id, Class: class, Kind: kind, re: regexp.MustCompile(pattern)}
}

// gaugeRules returns the value templates for a gauge. Every template
// reports the current value, never a gain:
//
//	Affûtage (+20 Niv.)
//	Affûtage: +20
//	Affûtage: 20
//	20 Affûtage
func gaugeRules(class event.Class, gauge, folded string) []Rule {
	id := string(class) + "." + folded
	rules := []Rule{
		rule(id+".level", class, KindGaugeValue, `\b`+folded+`\s*\(\+\s*(?P<value>\d+)\s*niv\.?\)`),
		rule(id+".plus", class, KindGaugeValue, `\b`+folded+`\s*[:\-]?\s*\(?\+\s*(?P<value>\d+)`),
		rule(id+".colon", class, KindGaugeValue, `\b`+folded+`\s*[:\-]?\s*(?P<value>\d+)`),
		rule(id+".suffix", class, KindGaugeValue, `(?P<value>\d+)\s*`+folded+`\b`),
	}
	for i := range rules {
		rules[i].Gauge = gauge
	}
	return rules
}

// catalog is tried in order; the first matching rule wins. Shared and
// cast rules come first so a spell named after a gauge is read as a cast.
var catalog = buildCatalog()

func buildCatalog() []Rule {
	rules := []Rule{
		rule("combat_end", "", KindCombatEnd, `combat termine.*(?:cliquez ici pour rouvrir|fin de combat)`),
		rule("turn_carry", "", KindTurnCarry, `\d+\s+seconde(?:\(s\)|s)?\s+reportee(?:\(s\)|s)?\s+pour\s+le\s+tour\s+suivant`),
		rule("approach", event.Iop, KindApproach, `se\s+rapproche\s+de\s+(?P<cases>\d+)\s+case`),

		rule("cra.balise_cast", event.Cra, KindBaliseCast, `\blance\s+le\s+sort\s+balise\b`),
		rule("spell_cast", event.Iop, KindSpellCast, `(?:^|\s)(?P<caster>\S+)\s+lance\s+le\s+sort\s+(?P<spell>.+?)\s*$`),
		rule("spell_cast.self", event.Iop, KindSpellCast, `\bvous\s+lancez\s+(?:le\s+sort\s+)?(?P<spell>.+?)\s*$`),

		rule("cra.parti_pris", event.Cra, KindPartiPris, `-2\s*pa\s*max.*parti\s*pris|parti\s*pris.*-2\s*pa`),
		rule("cra.pointe_consumed", event.Cra, KindPointeConsumed, `consomme.*pointe\s+affutee`),
		rule("cra.pointe_ready", event.Cra, KindPointeReady, `pointe.*affutee.*prete`),
		rule("cra.balise_value", event.Cra, KindBaliseValue, `balise.*affutee.*\(\+\s*(?P<value>\d+)\s*niv\.?\)`),
		rule("iop.courroux_consumed", event.Iop, KindCourrouxConsumed, `consomme\s+courroux`),
	}

	rules = append(rules, gaugeRules(event.Iop, event.Concentration, "concentration")...)
	rules = append(rules, gaugeRules(event.Iop, event.Courroux, "courroux")...)
	rules = append(rules, gaugeRules(event.Iop, event.Preparation, "preparation")...)
	rules = append(rules, gaugeRules(event.Cra, event.Affutage, "affutage")...)
	rules = append(rules, gaugeRules(event.Cra, event.Precision, "precision")...)
	return rules
}

// Rules returns a copy of the catalog in match order.
func Rules() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// Pattern returns the rule's regular expression source.
func (r Rule) Pattern() string {
	return r.re.String()
}
