package utils

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents an enumeration of log levels
type LogLevel = zerolog.Level

const (
	Error   LogLevel = zerolog.ErrorLevel
	Warning LogLevel = zerolog.WarnLevel
	Info    LogLevel = zerolog.InfoLevel
	Debug   LogLevel = zerolog.DebugLevel
)

var (
	baseMu   sync.RWMutex
	baseLog  = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	baseOnce sync.Once
)

// ConfigureLogging sets the process-wide log output, level and format.
// format is "json" or "console"; out defaults to stderr.
func ConfigureLogging(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	baseMu.Lock()
	defer baseMu.Unlock()
	baseOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
	})
	baseLog = zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}

// Logger provides structured logging with context
type Logger struct {
	prefix string
	mu     sync.RWMutex
	zl     zerolog.Logger
}

// NewLogger creates a new logger with a given prefix
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	baseMu.RLock()
	zl := baseLog.With().Str("component", prefix).Logger()
	baseMu.RUnlock()

	if len(logLevel) > 0 {
		zl = zl.Level(logLevel[0])
	}
	return &Logger{prefix: prefix, zl: zl}
}

// NewLoggerTo creates a logger writing JSON lines to w. Used by tests.
func NewLoggerTo(prefix string, w io.Writer) *Logger {
	return &Logger{
		prefix: prefix,
		zl:     zerolog.New(w).With().Str("component", prefix).Logger().Level(zerolog.DebugLevel),
	}
}

// SetLogLevel sets the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(logLevel)
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.emit(l.logger().Info(), msg, keyvals)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.emit(l.logger().Error(), msg, keyvals)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.emit(l.logger().Warn(), msg, keyvals)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.emit(l.logger().Debug(), msg, keyvals)
}

func (l *Logger) logger() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	zl := l.zl
	return &zl
}

// emit attaches key-value pairs and writes the event. A trailing key
// without a value is dropped.
func (l *Logger) emit(ev *zerolog.Event, msg string, keyvals []interface{}) {
	if ev == nil {
		return
	}
	if len(keyvals)%2 != 0 {
		keyvals = keyvals[:len(keyvals)-1]
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keyvals[i+1].(error); isErr {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}
