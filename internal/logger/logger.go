// Package logger provides process-wide logging for docqa.
// Messages are printf-style and written through a charmbracelet/log logger.
// Verbose mode (--verbose) lowers the level to debug so the pipeline
// stages and their decisions are visible on stderr.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Config controls the logger output format and threshold.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty keeps the current level.
	Level string

	// JSON switches to one JSON object per line.
	JSON bool
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	level             = charmlog.WarnLevel
	jsonOut bool
	base    = newLogger()
)

// newLogger builds a charm logger from the current settings (caller holds mu or is init).
func newLogger() *charmlog.Logger {
	l := charmlog.NewWithOptions(output, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           effectiveLevel(),
	})
	if jsonOut {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return l
}

func effectiveLevel() charmlog.Level {
	if verbose {
		return charmlog.DebugLevel
	}
	return level
}

// Configure applies level and format settings.
func Configure(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Level != "" {
		lvl, err := charmlog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return err
		}
		level = lvl
	}
	jsonOut = cfg.JSON
	base = newLogger()
	return nil
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base.SetLevel(effectiveLevel())
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger()
}

// Reset restores the defaults: stderr, warn level, text format, not verbose.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	verbose = false
	output = os.Stderr
	level = charmlog.WarnLevel
	jsonOut = false
	base = newLogger()
}

func current() *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	current().Debugf(format, args...)
}

// Section logs a section header at debug level.
func Section(name string) {
	current().Debugf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	current().Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	current().Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	current().Errorf(format, args...)
}

// With returns a child logger carrying structured key/value pairs.
func With(keyvals ...any) *charmlog.Logger {
	return current().With(keyvals...)
}
