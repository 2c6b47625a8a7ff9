// Package logging writes component-tagged diagnostics to stderr. Output is
// text by default and JSON when SECMETA_LOG_FORMAT=json.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const envLogFormat = "SECMETA_LOG_FORMAT"

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// SetOutput redirects log output; the format is re-read from the environment.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// Info logs a message with key/value fields.
func Info(component, msg string, kv ...interface{}) {
	current().Info(msg, withComponent(component, kv)...)
}

// Warn logs a warning with key/value fields.
func Warn(component, msg string, kv ...interface{}) {
	current().Warn(msg, withComponent(component, kv)...)
}

// Error logs an error message with key/value fields.
func Error(component, msg string, kv ...interface{}) {
	current().Error(msg, withComponent(component, kv)...)
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = newLogger(os.Stderr)
	}
	return logger
}

func newLogger(w io.Writer) *slog.Logger {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envLogFormat)), "json") {
		return slog.New(slog.NewJSONHandler(w, nil))
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

func withComponent(component string, kv []interface{}) []interface{} {
	if len(kv)%2 != 0 {
		kv = append(kv, "(missing)")
	}
	return append([]interface{}{"component", component}, kv...)
}
