// Package logging configures the zerolog logger shared by every component.
//
// Call Init once from main, then derive per-component loggers:
//
//	logging.Init(debug)
//	log := logging.Component("acquire")
//	log.Info().Str("item", id).Msg("Recorded")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global level and installs a console writer on stderr.
func Init(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	SetOutput(os.Stderr)
}

// SetOutput redirects log output, e.g. away from a full-screen TUI.
func SetOutput(w io.Writer) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// Disable silences all logging.
func Disable() {
	log.Logger = zerolog.Nop()
}

// Component returns a logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
