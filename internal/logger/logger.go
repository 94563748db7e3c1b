// Package logger provides the process-wide zerolog logger used by every
// dsq component (store, manager, worker, scheduler, forwarder, http).
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the default logger instance, untagged by component.
var Log zerolog.Logger

func init() {
	Log = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()

	if os.Getenv("APP_ENV") != "production" {
		Log = Log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// GetLogger returns the global logger instance.
func GetLogger() zerolog.Logger {
	return Log
}

// New returns a sub-logger tagged with the given component name, so a
// single process (worker, scheduler, forwarder, http) can be told apart
// in shared log output.
func New(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}
