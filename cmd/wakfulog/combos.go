package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

var (
	// combos flags
	combosSpells bool
	combosDump   bool
)

var combosCmd = &cobra.Command{
	Use:   "combos",
	Short: "List the loaded spell and combo definitions",
	Long: `List the combos (and with --spells, the spells) of the definitions in
use: the file named by definitions_file, or the built-in defaults.

Examples:
  wakfulog combos --format pretty
  wakfulog combos --spells
  # Start a custom definitions file from the defaults
  wakfulog combos --dump > combos.yaml`,
	Args: cobra.NoArgs,
	RunE: runCombos,
}

func init() {
	combosCmd.Flags().StringP("format", "f", "pretty",
		"Output format: jsonl, pretty")
	combosCmd.Flags().BoolVar(&combosSpells, "spells", false,
		"Also list spells")
	combosCmd.Flags().BoolVar(&combosDump, "dump", false,
		"Print the built-in definitions file and exit")

	rootCmd.AddCommand(combosCmd)
}

// comboInfo is the jsonl form of a combo.
type comboInfo struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Icon  string   `json:"icon,omitempty"`
	Steps []string `json:"steps"`
}

// spellInfo is the jsonl form of a spell.
type spellInfo struct {
	Name  string         `json:"name"`
	Cost  event.Cost     `json:"cost"`
	Gains map[string]int `json:"gains,omitempty"`
}

func runCombos(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	if combosDump {
		_, err := out.Write(combo.DefaultYAML())
		return err
	}
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defs, err := loadDefinitions(cfg)
	if err != nil {
		return err
	}
	return writeDefinitions(out, format, defs, combosSpells)
}

func writeDefinitions(out io.Writer, format string, defs *combo.Definitions, spells bool) error {
	s := newStyles(out)

	for _, c := range defs.Combos() {
		info := comboInfo{ID: c.ID, Name: c.Name, Icon: c.Icon}
		for _, st := range c.Steps {
			info.Steps = append(info.Steps, stepLabel(st))
		}
		var err error
		if format == "jsonl" {
			err = OutputJSON(info, out)
		} else {
			_, err = fmt.Fprintf(out, "%s %s  %s\n",
				s.muted.Render(fmt.Sprintf("%-10s", c.ID)),
				s.combo.Render(c.Name),
				strings.Join(info.Steps, " → "))
		}
		if err != nil {
			return err
		}
	}

	if !spells {
		return nil
	}

	names := defs.SpellNames()
	sort.Strings(names)
	for _, name := range names {
		_, sp, _ := defs.Spell(name)
		var err error
		if format == "jsonl" {
			err = OutputJSON(spellInfo{Name: name, Cost: sp.Cost, Gains: sp.Gains}, out)
		} else {
			_, err = fmt.Fprintf(out, "%-24s %-8s %s\n", name, sp.Cost, gainsLabel(sp.Gains))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// stepLabel renders a step as its spell, its cost, or "spell (cost)".
func stepLabel(st combo.Step) string {
	switch {
	case st.Spell != "" && st.Cost != nil:
		return fmt.Sprintf("%s (%s)", st.Spell, st.Cost)
	case st.Spell != "":
		return st.Spell
	case st.Cost != nil:
		return st.Cost.String()
	}
	return "?"
}

func gainsLabel(gains map[string]int) string {
	if len(gains) == 0 {
		return ""
	}
	keys := make([]string, 0, len(gains))
	for k := range gains {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %+d", k, gains[k])
	}
	return strings.Join(parts, ", ")
}
