// Package log configures the server's zerolog logger: a package-level
// Logger, console or JSON output, and child-logger helpers components pull
// from rather than calling the global logger directly.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger every component derives its own
// component logger from via With*.
var Logger zerolog.Logger

// Level is a configured log verbosity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init sets the global zerolog level and builds Logger with either a
// console writer (human-friendly, for local/dev use) or a JSON writer (for
// production log shipping).
func Init(cfg Config) {
	switch cfg.Level {
	case DebugLevel:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case WarnLevel:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case ErrorLevel:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the given component
// name, the shape every internal package expects to receive at
// construction time.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithSubscription returns a child logger tagged with a subscription id.
func WithSubscription(id uint32) zerolog.Logger {
	return Logger.With().Uint32("subscription_id", id).Logger()
}

// WithSession returns a child logger tagged with a session id.
func WithSession(id uint32) zerolog.Logger {
	return Logger.With().Uint32("session_id", id).Logger()
}
