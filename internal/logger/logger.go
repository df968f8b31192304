// Package logger configures the orchestrator's structured logging.
//
// All components log through a single configured zerolog.Logger, obtained
// per-component via Component() so every line carries a "component" field
// for filtering.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide base logger. Configure() replaces it at startup;
// until then it logs at info level to stderr so early init errors are never lost.
var Log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Configure sets the global log level and output format from the LOG_LEVEL
// environment convention (debug|info|warn|error, default info).
func Configure(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	Log = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Component returns a logger scoped to a named subsystem, e.g. Component("lifecycle").
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}
