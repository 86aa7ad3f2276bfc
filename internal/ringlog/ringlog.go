// Package ringlog implements a small bounded log, adapted from the
// NewLogger/Log/Logf/Tail/Write/Clear contract of
// github.com/jetsetilly/gopher2600's "logger" package (whose source was not
// retrieved, but whose behaviour is fully pinned by its log_test.go and
// logger_test.go) and the fixed-capacity, drop-oldest-on-overflow ring of
// its "test.RingWriter" helper.
//
// dwarfview uses it as the session's "harmless error" ring (spec.md
// section 7): non-fatal anomalies observed while parsing are appended here
// instead of aborting the caller's query, and are retrievable via
// Tail/Write without ever surfacing through a call's return value.
package ringlog

import (
	"fmt"
	"io"
	"strings"
)

// Permission gates whether a Log/Logf call is actually recorded. This lets
// callers wire up verbosity flags without branching at every call site.
type Permission interface {
	AllowLogging() bool
}

// Allow is a Permission that always allows logging.
var Allow = allowAll{}

type allowAll struct{}

func (allowAll) AllowLogging() bool { return true }

// Logger is a fixed-capacity ring of "tag: detail" entries.
type Logger struct {
	capacity int
	entries  []string
	next     int // index of the oldest entry, once full
	full     bool
}

// NewLogger creates a Logger that retains at most capacity entries, the
// oldest being discarded once that limit is reached.
func NewLogger(capacity int) *Logger {
	if capacity < 1 {
		capacity = 1
	}
	return &Logger{
		capacity: capacity,
		entries:  make([]string, 0, capacity),
	}
}

// Log records tag and detail, gated by perm.AllowLogging(). detail is
// formatted specially for error and fmt.Stringer values; everything else
// uses the %v verb.
func (l *Logger) Log(perm Permission, tag string, detail interface{}) {
	if !perm.AllowLogging() {
		return
	}
	l.append(tag, formatDetail(detail))
}

// Logf is Log with a printf-style format string and arguments.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...interface{}) {
	if !perm.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func formatDetail(detail interface{}) string {
	switch d := detail.(type) {
	case error:
		return d.Error()
	case fmt.Stringer:
		return d.String()
	default:
		return fmt.Sprintf("%v", d)
	}
}

func (l *Logger) append(tag, detail string) {
	entry := fmt.Sprintf("%s: %s", tag, detail)
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, entry)
		return
	}
	l.entries[l.next] = entry
	l.next = (l.next + 1) % l.capacity
	l.full = true
}

// ordered returns the entries oldest-first.
func (l *Logger) ordered() []string {
	if !l.full {
		return l.entries
	}
	out := make([]string, 0, l.capacity)
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

// Write writes every retained entry, one per line, to w.
func (l *Logger) Write(w io.Writer) {
	var b strings.Builder
	for _, e := range l.ordered() {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	io.WriteString(w, b.String())
}

// Tail writes the last n entries (fewer if there aren't that many) to w.
func (l *Logger) Tail(w io.Writer, n int) {
	entries := l.ordered()
	if n < 0 {
		n = 0
	}
	if n > len(entries) {
		n = len(entries)
	}
	var b strings.Builder
	for _, e := range entries[len(entries)-n:] {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	io.WriteString(w, b.String())
}

// Clear discards every retained entry.
func (l *Logger) Clear() {
	l.entries = l.entries[:0]
	l.next = 0
	l.full = false
}

// Len reports the number of entries currently retained.
func (l *Logger) Len() int {
	return len(l.entries)
}
