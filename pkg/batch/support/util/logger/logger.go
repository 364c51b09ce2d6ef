// Package logger provides the leveled logging used across the Helios batch builder.
// It wraps the standard `log` package and filters messages by a global level.
// Scoped loggers created with New prefix every message, which keeps the
// interleaved output of concurrent partition workers readable.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
// Smaller numbers indicate more detailed log levels.
type LogLevel int32

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general progress messages.
	LevelInfo
	// LevelWarn is used for recoverable anomalies (stale frames, skipped sequences).
	LevelWarn
	// LevelError is used for failures that end a unit of work.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// logLevel is the current global level. Workers read it concurrently.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// An unknown value falls back to INFO and prints a notice.
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		logLevel.Store(int32(LevelDebug))
	case "INFO":
		logLevel.Store(int32(LevelInfo))
	case "WARN", "WARNING":
		logLevel.Store(int32(LevelWarn))
	case "ERROR":
		logLevel.Store(int32(LevelError))
	case "FATAL", "SILENT":
		logLevel.Store(int32(LevelFatal))
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel.Store(int32(LevelInfo))
	}
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects all log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(level LogLevel) bool {
	return GetLogLevel() <= level
}

func output(level LogLevel, prefix, format string, v ...interface{}) {
	if !enabled(level) {
		return
	}
	log.Printf("["+level.String()+"] "+prefix+format, v...)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) { output(LevelDebug, "", format, v...) }

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) { output(LevelInfo, "", format, v...) }

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) { output(LevelWarn, "", format, v...) }

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) { output(LevelError, "", format, v...) }

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}

// Logger is a scoped logger. Every message is prefixed with its scope,
// e.g. "[train 500-1000] ".
type Logger struct {
	prefix string
}

// New creates a scoped logger. An empty scope behaves like the package functions.
func New(scope string) *Logger {
	if scope == "" {
		return &Logger{}
	}
	return &Logger{prefix: "[" + scope + "] "}
}

// With returns a child logger whose scope is appended to the parent's.
func (l *Logger) With(scope string) *Logger {
	return &Logger{prefix: l.prefix + "[" + scope + "] "}
}

// Debugf logs at DEBUG level.
func (l *Logger) Debugf(format string, v ...interface{}) { output(LevelDebug, l.prefix, format, v...) }

// Infof logs at INFO level.
func (l *Logger) Infof(format string, v ...interface{}) { output(LevelInfo, l.prefix, format, v...) }

// Warnf logs at WARN level.
func (l *Logger) Warnf(format string, v ...interface{}) { output(LevelWarn, l.prefix, format, v...) }

// Errorf logs at ERROR level.
func (l *Logger) Errorf(format string, v ...interface{}) { output(LevelError, l.prefix, format, v...) }
