package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide console logger. Verbose switches the level
// from Info to Debug.
func New(verbose bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// WithComponent tags a child logger with a component field.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
