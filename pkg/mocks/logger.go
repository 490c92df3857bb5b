package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/dualcam/pkg/ports"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// Logger records log calls for verification.
type Logger struct {
	component string
	entries   *logEntries
}

type logEntries struct {
	mu   sync.Mutex
	list []LogEntry
}

// NewLogger creates a recording logger.
func NewLogger() *Logger {
	return &Logger{entries: &logEntries{}}
}

func (l *Logger) record(level ports.LogLevel, msg string, args ...interface{}) {
	l.entries.mu.Lock()
	defer l.entries.mu.Unlock()
	l.entries.list = append(l.entries.list, LogEntry{
		Level:     level,
		Component: l.component,
		Message:   fmt.Sprintf(msg, args...),
	})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.record(ports.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.record(ports.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.record(ports.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.record(ports.LevelError, msg, args...) }

func (l *Logger) Enabled(level ports.LogLevel) bool { return true }

func (l *Logger) WithComponent(component string) ports.Logger {
	return &Logger{component: component, entries: l.entries}
}

// Entries returns a copy of all recorded entries, across components.
func (l *Logger) Entries() []LogEntry {
	l.entries.mu.Lock()
	defer l.entries.mu.Unlock()
	return append([]LogEntry(nil), l.entries.list...)
}

// Contains reports whether any entry at level contains substr.
func (l *Logger) Contains(level ports.LogLevel, substr string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

var _ ports.Logger = (*Logger)(nil)
