package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	file    *os.File
	logger  *charmlog.Logger
	mu      sync.Mutex
	enabled bool
)

// Enable starts debug logging to ~/.config/professore/debug.log
func Enable() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return EnableFile(filepath.Join(homeDir, ".config", "professore", "debug.log"), "debug")
}

// EnableFile starts logging to path at the given level, truncating the file
func EnableFile(path, level string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := EnableTo(f, level); err != nil {
		f.Close()
		return err
	}
	mu.Lock()
	file = f
	mu.Unlock()
	return nil
}

// EnableTo routes log output to w. Level is one of debug, info, warn, error.
func EnableTo(w io.Writer, level string) error {
	lvl := charmlog.DebugLevel
	if level != "" {
		parsed, err := charmlog.ParseLevel(level)
		if err != nil {
			return err
		}
		lvl = parsed
	}

	mu.Lock()
	defer mu.Unlock()

	closeFile()
	logger = charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           lvl,
	})
	enabled = true
	logger.Info("=== Debug logging started ===")
	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	closeFile()
	logger = nil
	enabled = false
}

// Enabled reports whether any output is configured
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func closeFile() {
	if file != nil {
		file.Close()
		file = nil
	}
}

func write(level charmlog.Level, category, format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()

	if l == nil {
		return
	}
	l.Log(level, fmt.Sprintf(format, args...), "cat", category)
}

// Log writes a debug-level message to the log
func Log(category, format string, args ...any) {
	write(charmlog.DebugLevel, category, format, args...)
}

// Info writes an info-level message
func Info(category, format string, args ...any) {
	write(charmlog.InfoLevel, category, format, args...)
}

// Warn writes a warn-level message
func Warn(category, format string, args ...any) {
	write(charmlog.WarnLevel, category, format, args...)
}

// Error writes an error-level message
func Error(category, format string, args ...any) {
	write(charmlog.ErrorLevel, category, format, args...)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
