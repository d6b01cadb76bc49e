package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger shared by every package of the service.
type Logger = zerolog.Logger

// NewLogger builds the service logger. Development gets a console writer at
// debug level, everything else JSON lines at info.
func NewLogger(appEnv string) Logger {
	return newLogger(appEnv, os.Stdout)
}

func newLogger(appEnv string, out io.Writer) Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "fundraiser").
		Logger()
}
