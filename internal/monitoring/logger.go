// Package monitoring holds the report's logging hooks and run metrics.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		structured = zerolog.Nop()
		return
	}
	Logf = f
}

// structured receives warnings that carry context fields (climb, placement,
// role code). It is silent until Init is called.
var structured = zerolog.Nop()

// Logger returns the structured logger configured by Init.
func Logger() *zerolog.Logger {
	return &structured
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Format string // "console" or "json"
	Output io.Writer
}

// Init configures the structured logger and points Logf at it, so progress
// messages and warnings share one stream.
func Init(cfg LogConfig) error {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var w io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	case "json":
		w = cfg.Output
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", cfg.Format)
	}

	structured = zerolog.New(w).Level(level).With().Timestamp().Logger()
	Logf = func(format string, v ...interface{}) {
		structured.Info().Msgf(format, v...)
	}
	return nil
}
