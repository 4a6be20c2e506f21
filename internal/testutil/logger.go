package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// LogEntry is one record captured by TestLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// String renders the entry as "msg key=value ...".
func (e LogEntry) String() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	for i := 0; i+1 < len(e.Args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Args[i], e.Args[i+1])
	}
	return b.String()
}

// TestLogger captures log records for assertions.
type TestLogger struct {
	mu      sync.RWMutex
	entries []LogEntry
}

func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

func (l *TestLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: append([]any(nil), args...)})
}

func (l *TestLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *TestLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *TestLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *TestLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

// Entries returns a copy of all captured records.
func (l *TestLogger) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LogEntry(nil), l.entries...)
}

// Messages returns the messages logged at level.
func (l *TestLogger) Messages(level string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for _, e := range l.entries {
		if e.Level == level {
			out = append(out, e.Msg)
		}
	}
	return out
}

// Contains reports whether any record at level has msg as its message.
func (l *TestLogger) Contains(level, msg string) bool {
	for _, m := range l.Messages(level) {
		if m == msg {
			return true
		}
	}
	return false
}
