// Package logreader reads lines appended to the game log since the last poll.
//
// The reader keeps a byte offset and the identity of the file it belongs
// to. Every Poll reopens the file read-only, so the game can keep writing,
// rotating or replacing it. A file that shrank below the offset or was
// replaced is read again from the start.
package logreader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wakfulog/wakfulog-go/internal/parser"
	"github.com/wakfulog/wakfulog-go/internal/safefile"
)

// DefaultMaxReadBytes bounds how much a single Poll reads.
const DefaultMaxReadBytes = 4 << 20

// ErrLogUnavailable is returned when the log file is missing or cannot be
// read. It is recoverable: the next Poll tries again.
var ErrLogUnavailable = errors.New("log file unavailable")

// Position is where the next Poll resumes.
type Position struct {
	Offset   int64
	Identity safefile.Identity
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxReadBytes bounds the bytes read per Poll. Values <= 0 are ignored.
func WithMaxReadBytes(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRead = n
		}
	}
}

// WithStartAtEnd skips the content present when the file is first opened.
func WithStartAtEnd(v bool) Option {
	return func(r *Reader) { r.startAtEnd = v }
}

// WithClock sets the clock used to date lines without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) {
		if now != nil {
			r.now = now
		}
	}
}

// Reader polls one log file. It is not safe for concurrent use.
type Reader struct {
	path       string
	pos        Position
	maxRead    int64
	startAtEnd bool
	started    bool
	now        func() time.Time
}

// New returns a Reader for path. The file does not need to exist yet.
func New(path string, opts ...Option) *Reader {
	r := &Reader{
		path:    path,
		maxRead: DefaultMaxReadBytes,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Path returns the file being read.
func (r *Reader) Path() string { return r.path }

// Position returns the current cursor.
func (r *Reader) Position() Position { return r.pos }

// SetPath switches to another file and rewinds the cursor.
func (r *Reader) SetPath(path string) {
	r.path = path
	r.pos = Position{}
}

// Close implements the line source interface. A Reader holds no handle
// between polls.
func (r *Reader) Close() error { return nil }

// Poll returns the complete lines appended since the previous call.
// A trailing line without newline is left for the next Poll.
func (r *Reader) Poll() ([]parser.RawLine, error) {
	f, info, err := safefile.OpenRegular(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogUnavailable, err)
	}
	defer f.Close()

	if !r.pos.Identity.Same(info) {
		r.pos = Position{Identity: safefile.IdentityOf(info)}
		if !r.started && r.startAtEnd {
			r.pos.Offset = info.Size()
		}
	}
	r.started = true

	size := info.Size()
	if size < r.pos.Offset {
		r.pos.Offset = 0
	}
	if size == r.pos.Offset {
		return nil, nil
	}

	n := size - r.pos.Offset
	if n > r.maxRead {
		n = r.maxRead
	}
	buf := make([]byte, n)
	m, err := f.ReadAt(buf, r.pos.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrLogUnavailable, err)
	}
	buf = buf[:m]

	end := bytes.LastIndexByte(buf, '\n') + 1
	if end == 0 {
		if int64(len(buf)) < r.maxRead {
			return nil, nil
		}
		// A single line longer than the read bound is cut rather than stalling.
		end = len(buf)
	}
	r.pos.Offset += int64(end)

	readAt := r.now()
	var lines []parser.RawLine
	for _, raw := range bytes.Split(buf[:end], []byte{'\n'}) {
		raw = bytes.TrimRight(raw, "\r")
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, parser.Decode(raw, readAt))
	}
	return lines, nil
}
