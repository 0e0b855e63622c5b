// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// Verbosity levels (in increasing order):
//
//	Error < Warn < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(logger.Debug)
//	logger.Infof("reading prices for %s", ticker)
//	logger.Debugf("window=%d periods=%d", window, periods)
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Warn               // Warn logs recoverable problems (fallbacks, retries).
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

var levelNames = map[string]Level{
	"error": Error,
	"warn":  Warn,
	"info":  Info,
	"debug": Debug,
	"trace": Trace,
}

// current holds the active verbosity level.
// Only messages with level <= current are logged.
var current = Info

// std is the package logger. Output goes to stderr so that reports
// written to stdout stay clean for pipelines.
var std = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

// SetVerbosity sets the global logging verbosity.
// Typically called once during startup, after the configuration is loaded.
func SetVerbosity(l Level) {
	current = l
}

// Verbosity returns the active level.
func Verbosity() Level {
	return current
}

// SetOutput redirects log output, e.g. to a file or a test buffer.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// ParseLevel converts a level name (case-insensitive) or a numeric level
// ("0".."4") into a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if l, ok := levelNames[s]; ok {
		return l, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= int(Error) && n <= int(Trace) {
		return Level(n), nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

// logf checks verbosity and delegates formatting to the standard logger.
// calldepth 3 attributes the file:line to the caller of Errorf/Infof/...
func logf(l Level, prefix, format string, args ...any) {
	if current >= l {
		_ = std.Output(3, prefix+fmt.Sprintf(format, args...))
	}
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	logf(Error, "[ERROR] ", format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	logf(Warn, "[WARN]  ", format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, "[TRACE] ", format, args...)
}
