package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/wakfulog/wakfulog-go/internal/textfold"
)

// Match is a classified line.
type Match struct {
	Rule   Rule
	Groups map[string]string // named captures, with the original spelling
}

// Int returns a named capture as an integer.
func (m Match) Int(name string) (int, bool) {
	v, ok := m.Groups[name]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Classify matches line against the catalog. It reports false for lines
// that carry nothing of interest.
func Classify(line RawLine) (Match, bool) {
	return classify(catalog, line.Body)
}

func classify(rules []Rule, body string) (Match, bool) {
	if body == "" {
		return Match{}, false
	}
	orig := norm.NFC.String(body)
	folded := textfold.Fold(orig)

	for _, r := range rules {
		loc := r.re.FindStringSubmatchIndex(folded)
		if loc == nil {
			continue
		}
		return Match{Rule: r, Groups: captures(r.re, loc, orig, folded)}, true
	}
	return Match{}, false
}

// captures extracts named groups. Offsets refer to the folded text; when
// folding kept one rune per rune, they are mapped back so captures keep
// their accents and case.
func captures(re *regexp.Regexp, loc []int, orig, folded string) map[string]string {
	names := re.SubexpNames()
	groups := make(map[string]string, len(names))
	aligned := utf8.RuneCountInString(orig) == utf8.RuneCountInString(folded)

	for i, name := range names {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		start, end := loc[2*i], loc[2*i+1]
		if !aligned {
			groups[name] = folded[start:end]
			continue
		}
		from := utf8.RuneCountInString(folded[:start])
		to := from + utf8.RuneCountInString(folded[start:end])
		groups[name] = runeSlice(orig, from, to)
	}
	return groups
}

func runeSlice(s string, from, to int) string {
	var b strings.Builder
	i := 0
	for _, r := range s {
		if i >= to {
			break
		}
		if i >= from {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}
