package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RawLine is one decoded log line.
type RawLine struct {
	// Text is the full line without its line terminator.
	Text string
	// Body is the message after the timestamp prefix, or Text when there is none.
	Body string
	// Time is the timestamp from the prefix on the read date, or the read
	// time when HasTime is false.
	Time    time.Time
	HasTime bool
}

// Timestamp prefixes written by the client:
//
//	18:39:43,129 - [Information (combat)] ...
//	[12:00:01] Vous lancez ...
var (
	clockPrefix   = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3}) - `)
	bracketPrefix = regexp.MustCompile(`^\[(\d{2}):(\d{2}):(\d{2})\] ?`)
)

// Decode turns raw bytes into a RawLine. Invalid UTF-8 is replaced with
// U+FFFD and a trailing CR or LF is removed. readAt supplies the date for
// the time-of-day prefix.
func Decode(raw []byte, readAt time.Time) RawLine {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = strings.TrimRight(text, "\r\n")

	line := RawLine{Text: text, Body: text, Time: readAt}

	if m := clockPrefix.FindStringSubmatch(text); m != nil {
		if ts, ok := timeOfDay(readAt, m[1], m[2], m[3], m[4]); ok {
			line.Time, line.HasTime = ts, true
			line.Body = text[len(m[0]):]
		}
	} else if m := bracketPrefix.FindStringSubmatch(text); m != nil {
		if ts, ok := timeOfDay(readAt, m[1], m[2], m[3], ""); ok {
			line.Time, line.HasTime = ts, true
			line.Body = text[len(m[0]):]
		}
	}
	return line
}

// DecodeString is Decode for a string.
func DecodeString(s string, readAt time.Time) RawLine {
	return Decode([]byte(s), readAt)
}

// timeOfDay places hh:mm:ss.mmm on readAt's date. A time more than twelve
// hours ahead of readAt belongs to the previous day (a line written just
// before midnight and read just after).
func timeOfDay(readAt time.Time, hh, mm, ss, ms string) (time.Time, bool) {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	if h > 23 || m > 59 || s > 59 {
		return time.Time{}, false
	}
	nsec := 0
	if ms != "" {
		v, _ := strconv.Atoi(ms)
		nsec = v * int(time.Millisecond)
	}

	y, mo, d := readAt.Date()
	ts := time.Date(y, mo, d, h, m, s, nsec, readAt.Location())
	if ts.Sub(readAt) > 12*time.Hour {
		ts = ts.AddDate(0, 0, -1)
	}
	return ts, true
}
