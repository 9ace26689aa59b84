package wakfulog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wakfulog/wakfulog-go/internal/parser"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

// ParseLine parses a single log line with a fresh parser and the default
// definitions. It returns nil for lines that match nothing.
//
// Lines that depend on earlier ones (combo steps after the first, a Charge
// cost) need a Monitor or ParseLines to be resolved.
//
// Example:
//
//	for _, ev := range wakfulog.ParseLine("[12:00:02] Concentration: 12") {
//	    fmt.Println(ev)
//	}
func ParseLine(line string) []event.Event {
	return ParseLines([]string{line}, time.Now())
}

// ParseLines parses lines in order with a fresh parser, as if they had
// been read at readAt, and flushes pending events at the end.
func ParseLines(lines []string, readAt time.Time) []event.Event {
	p := parser.New(parser.Options{DedupWindow: parser.DefaultDedupWindow})
	var out []event.Event
	for _, l := range lines {
		out = append(out, p.Parse(DecodeLine(l, readAt))...)
	}
	return append(out, p.Flush(readAt)...)
}

// DecodeLine decodes one log line read at readAt: the time prefix is
// resolved against readAt's date and the message body is split off. Use it
// to build lines for a custom LineSource.
func DecodeLine(line string, readAt time.Time) RawLine {
	return parser.DecodeString(line, readAt)
}

// StaticSource is a LineSource over a fixed set of lines. The first Poll
// returns all of them; later polls return nothing.
type StaticSource struct {
	lines []RawLine
}

// NewStaticSource decodes lines as if read at readAt.
func NewStaticSource(readAt time.Time, lines ...string) *StaticSource {
	s := &StaticSource{lines: make([]RawLine, 0, len(lines))}
	for _, l := range lines {
		l = strings.TrimRight(l, "\r\n")
		if l == "" {
			continue
		}
		s.lines = append(s.lines, DecodeLine(l, readAt))
	}
	return s
}

// ReadStaticSource reads every line of r.
func ReadStaticSource(r io.Reader, readAt time.Time) (*StaticSource, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return NewStaticSource(readAt, lines...), nil
}

// Poll implements LineSource.
func (s *StaticSource) Poll() ([]RawLine, error) {
	lines := s.lines
	s.lines = nil
	return lines, nil
}

// Close implements LineSource.
func (s *StaticSource) Close() error { return nil }
