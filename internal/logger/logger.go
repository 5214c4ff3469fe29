package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
)

// New builds the process logger. LOG_FORMAT=json switches off the console writer.
func New(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop is handy for tests and for wiring optional components.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
