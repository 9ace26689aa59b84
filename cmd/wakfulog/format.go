package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/tracker"
)

// validFormats lists all valid output formats.
var validFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

func checkFormat(format string) error {
	if !validFormats[format] {
		return fmt.Errorf("unknown format: %s (want jsonl or pretty)", format)
	}
	return nil
}

// styles colors pretty output. Colors are dropped when out is not a terminal.
type styles struct {
	time     lipgloss.Style
	class    lipgloss.Style
	gauge    lipgloss.Style
	combo    lipgloss.Style
	complete lipgloss.Style
	reset    lipgloss.Style
	flag     lipgloss.Style
	muted    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		time:     r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		class:    r.NewStyle().Bold(true).Width(4),
		gauge:    r.NewStyle().Foreground(lipgloss.Color("#89B4FA")),
		combo:    r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		complete: r.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true),
		reset:    r.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		flag:     r.NewStyle().Foreground(lipgloss.Color("#CBA6F7")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}

func (s styles) forKind(k event.Kind) lipgloss.Style {
	switch k {
	case event.GaugeSet, event.GaugeDelta:
		return s.gauge
	case event.ComboStep:
		return s.combo
	case event.ComboComplete:
		return s.complete
	case event.ComboReset, event.CombatEnd:
		return s.reset
	case event.FlagDetected, event.FlagCleared:
		return s.flag
	}
	return s.muted
}

// OutputEvent writes an event in the specified format to the writer.
func OutputEvent(format string, ev event.Event, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(ev, out)
	case "pretty":
		return OutputPretty(ev, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes a value as one JSON line.
func OutputJSON(v any, out io.Writer) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes an event in human-readable format.
func OutputPretty(ev event.Event, out io.Writer) error {
	s := newStyles(out)
	ts := ev.Time.Format("15:04:05")

	class := string(ev.Class)
	if class == "" {
		class = "-"
	}
	text := strings.TrimPrefix(ev.String(), string(ev.Class)+" ")

	_, err := fmt.Fprintf(out, "%s %s %s\n",
		s.time.Render("["+ts+"]"),
		s.class.Render(class),
		s.forKind(ev.Kind).Render(text))
	return err
}

// OutputSnapshot writes a class snapshot in the specified format.
func OutputSnapshot(format string, snap tracker.Snapshot, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(snap, out)
	case "pretty":
		return outputSnapshotPretty(snap, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func outputSnapshotPretty(snap tracker.Snapshot, out io.Writer) error {
	s := newStyles(out)
	var b strings.Builder

	b.WriteString(s.class.UnsetWidth().Render(string(snap.Class)))
	b.WriteByte('\n')

	for _, name := range gaugeOrder(snap) {
		g := snap.Gauges[name]
		line := fmt.Sprintf("  %-16s %3d/%d", name, g.Value, g.Max)
		if g.Over {
			line += " " + s.complete.Render(fmt.Sprintf("> %d", g.Threshold))
		}
		b.WriteString(s.gauge.Render(line))
		b.WriteByte('\n')
	}

	flags := make([]string, 0, len(snap.Flags))
	for name := range snap.Flags {
		flags = append(flags, name)
	}
	sort.Strings(flags)
	for _, name := range flags {
		f := snap.Flags[name]
		state := s.muted.Render("off")
		if f.Active {
			state = s.flag.Render("on")
			if f.Remaining > 0 {
				state += s.muted.Render(fmt.Sprintf(" (%s)", f.Remaining.Round(100*time.Millisecond)))
			}
		}
		fmt.Fprintf(&b, "  %-16s %s\n", name, state)
	}

	c := snap.Combo
	switch c.Status {
	case tracker.ComboInProgress:
		fmt.Fprintf(&b, "  %-16s %s\n", "combo", s.combo.Render(
			fmt.Sprintf("%s %d/%d", c.ComboName, c.Step, c.TotalSteps)))
	case tracker.ComboCompleted:
		fmt.Fprintf(&b, "  %-16s %s\n", "combo", s.complete.Render(c.ComboName+" complete"))
	default:
		fmt.Fprintf(&b, "  %-16s %s\n", "combo", s.muted.Render("idle"))
	}

	if snap.LastSpell != nil {
		spell := snap.LastSpell.Name
		if snap.LastSpell.Cost != nil {
			spell += " (" + snap.LastSpell.Cost.String() + ")"
		}
		fmt.Fprintf(&b, "  %-16s %s\n", "last spell", spell)
	}

	_, err := io.WriteString(out, b.String())
	return err
}

// gaugeOrder lists the snapshot's gauges in declaration order, then any
// others by name.
func gaugeOrder(snap tracker.Snapshot) []string {
	var names []string
	seen := make(map[string]bool, len(snap.Gauges))
	for _, def := range tracker.DefaultClasses() {
		if def.Class != snap.Class {
			continue
		}
		for _, g := range def.Gauges {
			if _, ok := snap.Gauges[g.Name]; ok {
				names = append(names, g.Name)
				seen[g.Name] = true
			}
		}
	}
	var rest []string
	for name := range snap.Gauges {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
