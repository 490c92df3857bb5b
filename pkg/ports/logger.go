package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame and per-dispatch details.
	LevelDebug LogLevel = iota
	// LevelInfo is for lifecycle progress (start, stop, configuration).
	LevelInfo
	// LevelWarn is for dropped frames and recoverable failures.
	LevelWarn
	// LevelError is for failures that end a session.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown names map to info.
func ParseLogLevel(s string) LogLevel {
	for l := LevelDebug; l <= LevelQuiet; l++ {
		if l.String() == s {
			return l
		}
	}
	return LevelInfo
}

// Logger abstracts logging. Messages are translation keys in printf form;
// implementations translate them before formatting.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// Enabled reports whether messages at level would be written.
	// Hot paths check it before building arguments.
	Enabled(level LogLevel) bool

	// WithComponent returns a Logger that prefixes messages with the component name.
	WithComponent(component string) Logger
}
