// Command wakfulog follows the Wakfu chat log and reports class resources,
// buffs and combo progress.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wakfulog/wakfulog-go/internal/config"
	"github.com/wakfulog/wakfulog-go/internal/logfinder"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
)

var (
	// global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "wakfulog",
	Short: "Follow the Wakfu log and track class resources",
	Long: `wakfulog reads the Wakfu game client's chat log and tracks, for the
Iop and Cra classes, resource gauges (Concentration, Courroux, Préparation,
Affûtage, Précision), buffs and combo progress.

Configuration is read from a YAML file (--config or WAKFULOG_CONFIG), then
WAKFULOG_* environment variables, then command-line flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the layered configuration. --verbose forces debug level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the diagnostics logger: text on stderr, or on a rotated
// file when log_file is set. The returned closer must be called on exit.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, io.Closer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var (
		out    = stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		}
		out, closer = rotator, rotator
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer
}

// loadDefinitions returns the configured definitions, or the embedded ones.
func loadDefinitions(cfg *config.Config) (*combo.Definitions, error) {
	if cfg.DefinitionsFile == "" {
		return combo.Default(), nil
	}
	defs, err := combo.LoadDefinitions(cfg.DefinitionsFile)
	if err != nil {
		return nil, fmt.Errorf("definitions file: %w", err)
	}
	return defs, nil
}

// monitorOptions maps the configuration onto library options.
func monitorOptions(cfg *config.Config, defs *combo.Definitions, logger *slog.Logger) []wakfulog.Option {
	return []wakfulog.Option{
		wakfulog.WithSource(wakfulog.Source(cfg.Source)),
		wakfulog.WithStartAtEnd(!cfg.FromStart),
		wakfulog.WithPollInterval(cfg.PollInterval),
		wakfulog.WithDedupWindow(cfg.DedupWindow),
		wakfulog.WithComboTimeout(cfg.ComboTimeout),
		wakfulog.WithFlashDuration(cfg.FlashDuration),
		wakfulog.WithCourrouxDuration(cfg.CourrouxDuration),
		wakfulog.WithDefinitions(defs),
		wakfulog.WithLogger(logger),
	}
}

// resolveLogPath picks the log file from the flag, the config, then
// WAKFULOG_LOG.
func resolveLogPath(flagValue string, cfg *config.Config) (string, error) {
	path := strings.TrimSpace(flagValue)
	if path == "" {
		path = cfg.LogPath
	}
	resolved, err := logfinder.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("log file: %w (use --log, log_path or %s)", err, logfinder.EnvLogPath)
	}
	return resolved, nil
}
