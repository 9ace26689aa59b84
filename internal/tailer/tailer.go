// Package tailer follows a log file with github.com/nxadm/tail and hands the
// buffered lines over on demand.
//
// It is the "follow" line source: the tail goroutine reads as the file grows
// (reopening it after rotation), while Poll drains what is buffered without
// blocking, so every line is still parsed and applied on the caller's tick.
package tailer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nxadm/tail"

	"github.com/wakfulog/wakfulog-go/internal/parser"
)

// DefaultMaxLines bounds how many lines a single Poll drains.
const DefaultMaxLines = 4096

// ErrStopped is returned by Poll once the underlying tail has terminated.
var ErrStopped = errors.New("tailer stopped")

// Config holds tailer settings.
type Config struct {
	// FromStart reads the file from the beginning instead of only new lines.
	FromStart bool
	// Poll uses stat polling instead of filesystem notifications.
	Poll bool
	// MaxLines bounds the lines returned by one Poll. Zero means DefaultMaxLines.
	MaxLines int
}

// DefaultConfig returns the default configuration: follow new lines only,
// with polling, which works on every platform the game runs on.
func DefaultConfig() Config {
	return Config{
		Poll:     true,
		MaxLines: DefaultMaxLines,
	}
}

// Tailer follows one file.
type Tailer struct {
	path     string
	t        *tail.Tail
	maxLines int
}

// New starts following path. The file does not need to exist yet.
func New(path string, cfg Config) (*Tailer, error) {
	tc := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      cfg.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if !cfg.FromStart {
		tc.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, tc)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}

	maxLines := cfg.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Tailer{path: path, t: t, maxLines: maxLines}, nil
}

// Path returns the followed file.
func (tl *Tailer) Path() string { return tl.path }

// Poll returns the lines buffered since the previous call. It never blocks.
// Read errors reported by the tail goroutine are joined into the returned
// error; the lines read around them are still returned.
func (tl *Tailer) Poll() ([]parser.RawLine, error) {
	var (
		lines []parser.RawLine
		errs  []error
	)
	for len(lines) < tl.maxLines {
		select {
		case line, ok := <-tl.t.Lines:
			if !ok {
				errs = append(errs, tl.stopErr())
				return lines, errors.Join(errs...)
			}
			if line.Err != nil {
				errs = append(errs, line.Err)
				continue
			}
			text := strings.TrimRight(line.Text, "\r")
			if text == "" {
				continue
			}
			lines = append(lines, parser.DecodeString(text, line.Time))
		default:
			return lines, errors.Join(errs...)
		}
	}
	return lines, errors.Join(errs...)
}

func (tl *Tailer) stopErr() error {
	if err := tl.t.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	return ErrStopped
}

// Close stops the tail goroutine and releases its watches.
func (tl *Tailer) Close() error {
	err := tl.t.Stop()
	tl.t.Cleanup()
	return err
}
