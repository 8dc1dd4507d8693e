// Package logging configures the process-wide zerolog logger. spec.md §6
// describes RUST_LOG-style filtering with a default info level for the
// crate namespace; NEXUS_LOG plays the same role here.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs a console-writer zerolog logger as the package-level
// default, with its level taken from NEXUS_LOG (falling back to "info").
func Init() {
	level := parseLevel(os.Getenv("NEXUS_LOG"))
	zerolog.SetGlobalLevel(level)

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

func parseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
