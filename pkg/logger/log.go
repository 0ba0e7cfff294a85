// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line.
const ServiceName = "netecho"

// Init replaces the global logger. level is a zerolog level name ("debug",
// "info", ...) and falls back to info. pretty selects the human readable
// console format instead of JSON. The standard library logger is redirected
// into zerolog.
func Init(level string, pretty bool, version string) {
	InitWriter(os.Stdout, level, pretty, version)
}

// InitWriter is Init with an explicit destination.
func InitWriter(out io.Writer, level string, pretty bool, version string) {
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && l != zerolog.NoLevel {
		lvl = l
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	w := out
	if pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zlog.Logger = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", ServiceName).
		Str("version", version).
		Logger()

	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}
