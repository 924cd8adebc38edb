// Package logger provides leveled console logging for lexrag.
// Debug, info and warning output is only written in verbose mode; errors
// are always written so failed background work (watcher ingestion,
// degraded embeddings) is never silent.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer for all log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(always bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { write(false, "[DEBUG] ", format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { write(false, "[INFO] ", format, args...) }

// Warn prints a warning if verbose mode is enabled.
func Warn(format string, args ...any) { write(false, "[WARN] ", format, args...) }

// Error prints an error regardless of verbose mode.
func Error(format string, args ...any) { write(true, "[ERROR] ", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed logs the elapsed time of an operation at debug level.
// Usage: defer logger.Timed("embed batch")()
func Timed(op string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", op, time.Since(start).Round(time.Millisecond))
	}
}
