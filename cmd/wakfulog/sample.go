package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// sampleLines exercises every rule of the catalog once.
var sampleLines = []string{
	"[12:00:00] Vous lancez Épée de Feu",
	"[12:00:00] Concentration (+10 Niv.)",
	"[12:00:01] Vous lancez Jugement",
	"[12:00:02] Vous lancez Bond",
	"[12:00:03] Courroux (+2 Niv.)",
	"[12:00:04] Vous lancez Charge",
	"[12:00:04] Le Iop se rapproche de 2 cases",
	"[12:00:05] Consomme Courroux",
	"[12:00:06] Préparation: 20",
	"[12:00:07] 1 seconde reportée pour le tour suivant",
	"[12:00:08] Affûtage (+120 Niv.)",
	"[12:00:09] -2 PA max (Parti pris)",
	"[12:00:10] Précision (+210 Niv.)",
	"[12:00:11] Balise affûtée (+3 Niv.)",
	"[12:00:12] Legolas lance le sort Balise",
	"[12:00:13] La Pointe affûtée est prête",
	"[12:00:14] Consomme Pointe affûtée",
	"[12:00:15] [Information (combat)] Combat terminé, cliquez ici pour rouvrir l'écran de fin de combat.",
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Run the pipeline over built-in sample lines",
	Long: `Run the parser and tracker over a fixed set of representative log lines
and print the events they produce. Use it to check that definitions and
parsing behave as expected without the game running.

Examples:
  wakfulog sample --format pretty
  wakfulog sample --config wakfulog.yaml --snapshot`,
	Args: cobra.NoArgs,
	RunE: runSample,
}

var sampleSnapshot bool

func init() {
	sampleCmd.Flags().StringP("format", "f", "jsonl",
		"Output format: jsonl, pretty")
	sampleCmd.Flags().BoolVar(&sampleSnapshot, "snapshot", false,
		"Print the class snapshots before combat end")

	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer := newLogger(cfg, cmd.ErrOrStderr())
	defer closer.Close()

	defs, err := loadDefinitions(cfg)
	if err != nil {
		return err
	}

	readAt := time.Now()
	lines := sampleLines
	if sampleSnapshot {
		// Stop before combat end, which clears everything.
		lines = lines[:len(lines)-1]
	}

	clock := func() time.Time { return readAt }
	opts := append(monitorOptions(cfg, defs, logger),
		wakfulog.WithLineSource(wakfulog.NewStaticSource(readAt, lines...)),
		wakfulog.WithClock(clock),
	)
	m, err := wakfulog.NewMonitor(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	out := cmd.OutOrStdout()
	if err := drain(cmd.Context(), m, out, format); err != nil {
		return err
	}
	if sampleSnapshot {
		return printSnapshots(out, format, m)
	}
	return nil
}

// drain ticks until the source is exhausted, flushes pending events and
// prints every event to out.
func drain(ctx context.Context, m *wakfulog.Monitor, out io.Writer, format string) error {
	for {
		u, err := m.Tick(ctx)
		if err != nil {
			return err
		}
		if err := writeUpdate(out, format, u, nil, false, m); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if u.Lines == 0 {
			break
		}
	}
	if err := writeUpdate(out, format, m.Flush(), nil, false, m); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

// printSnapshots prints every class snapshot.
func printSnapshots(out io.Writer, format string, m *wakfulog.Monitor) error {
	for _, c := range event.Classes {
		snap, ok := m.Snapshot(c)
		if !ok {
			continue
		}
		if err := OutputSnapshot(format, snap, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}
