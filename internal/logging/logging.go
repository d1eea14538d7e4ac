package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"canister/internal/config"
)

// New builds the process logger and installs it as the zerolog global.
// Output is one JSON object per line; LOG_PRETTY switches to a human console
// writer for local development. Unknown levels fall back to info.
func New(cfg config.LogConfig, app string) zerolog.Logger {
	return NewWithWriter(cfg, app, os.Stdout)
}

// NewWithWriter is New with an explicit sink, used by tests.
func NewWithWriter(cfg config.LogConfig, app string, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
