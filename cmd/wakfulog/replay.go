package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/wakfulog/wakfulog-go/internal/config"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog"
)

var (
	// replay flags
	replayEvents bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Read a whole log file and print the final state",
	Long: `Read a complete log file through the parser and tracker, then print
the resulting snapshot of every class. With --events, the events are
printed as they are produced.

Examples:
  wakfulog replay wakfu_chat.log --format pretty
  wakfulog replay wakfu_chat.log --events | jq 'select(.class == "iop")'`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringP("format", "f", "jsonl",
		"Output format: jsonl, pretty")
	replayCmd.Flags().BoolVar(&replayEvents, "events", false,
		"Print events, not only the final snapshots")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
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

	// A replay always reads the file with the offset reader, from the start.
	cfg.Source = config.SourcePoll
	cfg.FromStart = true
	opts := append(monitorOptions(cfg, defs, logger), wakfulog.WithLogPath(args[0]))
	m, err := wakfulog.NewMonitor(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	out := cmd.OutOrStdout()
	events := io.Discard
	if replayEvents {
		events = out
	}
	if err := drain(cmd.Context(), m, events, format); err != nil {
		return err
	}
	return printSnapshots(out, format, m)
}
