package wakfulog

import (
	"errors"
	"fmt"

	"github.com/wakfulog/wakfulog-go/internal/logreader"
	"github.com/wakfulog/wakfulog-go/internal/parser"
)

// Sentinel errors.
var (
	// ErrLogUnavailable means the log file is missing or unreadable.
	// The next tick tries again.
	ErrLogUnavailable = logreader.ErrLogUnavailable
	// ErrConfigMissing means a cast spell has no definition.
	// Such casts are dropped and logged at debug level.
	ErrConfigMissing = parser.ErrConfigMissing
	// ErrMonitorClosed is returned by Tick after Close.
	ErrMonitorClosed = errors.New("monitor closed")
	// ErrLogPathRequired is returned by NewMonitor without a log path or source.
	ErrLogPathRequired = errors.New("log path is required")
)

// PollOp identifies the step of a tick that failed.
type PollOp string

// Poll operations.
const (
	PollOpOpen PollOp = "open"
	PollOpRead PollOp = "read"
)

// PollError is returned by Tick when the line source fails.
type PollError struct {
	Op   PollOp
	Path string
	Err  error
}

func (e *PollError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}
