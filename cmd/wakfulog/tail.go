package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wakfulog/wakfulog-go/internal/config"
	"github.com/wakfulog/wakfulog-go/internal/metrics"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

var (
	// tail flags
	logPath      string
	format       string
	source       string
	fromStart    bool
	metricsAddr  string
	showSnapshot bool
	classFilter  []string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the Wakfu log and output events",
	Long: `Follow the Wakfu chat log in real time and output state events.

Events are output as JSON Lines by default (one JSON object per line),
which makes it easy to process with tools like jq.

Examples:
  # Follow a log file
  wakfulog tail --log "C:\Users\me\AppData\Roaming\zaap\gamesLogs\wakfu\logs\wakfu_chat.log"

  # Use the newest wakfu*.log of a directory, human-readable
  wakfulog tail --log ./logs --format pretty

  # Only Cra events, and the Cra snapshot after every update
  wakfulog tail --class cra --snapshot --format pretty

  # Read the whole existing log first
  wakfulog tail --from-start

  # Expose Prometheus metrics
  wakfulog tail --metrics-addr 127.0.0.1:9464

  # Pipe to jq for filtering
  wakfulog tail | jq 'select(.kind == "combo_complete")'`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&logPath, "log", "l", "",
		"Log file or directory (default: log_path from config, then WAKFULOG_LOG)")
	tailCmd.Flags().StringVarP(&format, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	tailCmd.Flags().StringVar(&source, "source", "",
		"Line source: poll, follow (default from config: poll)")
	tailCmd.Flags().BoolVar(&fromStart, "from-start", false,
		"Read the existing log content instead of only new lines")
	tailCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address")
	tailCmd.Flags().BoolVar(&showSnapshot, "snapshot", false,
		"Print the class snapshot after every update")
	tailCmd.Flags().StringSliceVar(&classFilter, "class", nil,
		"Classes to show (comma-separated: iop,cra)")

	rootCmd.AddCommand(tailCmd)
}

// applyTailFlags lets explicit flags override the configuration.
func applyTailFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("source") {
		cfg.Source = source
	}
	if cmd.Flags().Changed("from-start") {
		cfg.FromStart = fromStart
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg.Validate()
}

// buildClassFilter validates --class values. An empty filter shows everything.
func buildClassFilter(values []string) (map[event.Class]bool, error) {
	if len(values) == 0 {
		return nil, nil
	}
	valid := make(map[event.Class]bool, len(event.Classes))
	for _, c := range event.Classes {
		valid[c] = true
	}
	filter := make(map[event.Class]bool, len(values))
	for _, v := range values {
		c := event.Class(v)
		if !valid[c] {
			return nil, fmt.Errorf("unknown class %q (want iop or cra)", v)
		}
		filter[c] = true
	}
	return filter, nil
}

// shown reports whether an event passes the class filter. Events without a
// class (combat end) always pass.
func shown(filter map[event.Class]bool, ev event.Event) bool {
	return filter == nil || ev.Class == "" || filter[ev.Class]
}

func runTail(cmd *cobra.Command, args []string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	filter, err := buildClassFilter(classFilter)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyTailFlags(cmd, cfg); err != nil {
		return err
	}

	logger, closer := newLogger(cfg, cmd.ErrOrStderr())
	defer closer.Close()

	path, err := resolveLogPath(logPath, cfg)
	if err != nil {
		return err
	}
	defs, err := loadDefinitions(cfg)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := append(monitorOptions(cfg, defs, logger), wakfulog.WithLogPath(path))
	if cfg.MetricsAddr != "" {
		rec := metrics.New()
		opts = append(opts, wakfulog.WithMetrics(rec))
		go func() {
			if err := rec.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	m, err := wakfulog.NewMonitor(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	logger.Info("following log", "path", path, "source", cfg.Source, "from_start", cfg.FromStart)

	out := cmd.OutOrStdout()
	var outErr error
	err = m.Run(ctx, func(u wakfulog.Update) {
		if outErr != nil {
			return
		}
		outErr = writeUpdate(out, format, u, filter, showSnapshot, m)
		if outErr != nil {
			stop()
		}
	})
	if outErr != nil {
		return fmt.Errorf("output error: %w", outErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// writeUpdate prints the events of one tick and the combos that lapsed,
// then the touched snapshots when requested.
func writeUpdate(out io.Writer, format string, u wakfulog.Update, filter map[event.Class]bool, snapshots bool, m *wakfulog.Monitor) error {
	evs := u.Events
	for _, n := range u.Notifications {
		// Completions are already among the parser's events.
		if n.Kind == event.ComboReset {
			evs = append(evs, n)
		}
	}

	var touched []event.Class
	seen := make(map[event.Class]bool)
	for _, ev := range evs {
		if !shown(filter, ev) {
			continue
		}
		if err := OutputEvent(format, ev, out); err != nil {
			return err
		}
		if ev.Class != "" && !seen[ev.Class] {
			seen[ev.Class] = true
			touched = append(touched, ev.Class)
		}
	}

	if !snapshots {
		return nil
	}
	for _, c := range touched {
		snap, ok := m.Snapshot(c)
		if !ok {
			continue
		}
		if err := OutputSnapshot(format, snap, out); err != nil {
			return err
		}
	}
	return nil
}
