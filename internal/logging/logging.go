package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger. DEV gets a console writer, anything else JSON.
// Unknown levels fall back to info.
func New(level, env string) zerolog.Logger {
	return newLogger(os.Stderr, level, env)
}

// Init installs New's logger as the global zerolog logger.
func Init(level, env string) {
	log.Logger = New(level, env)
}

func newLogger(w io.Writer, level, env string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if env == "DEV" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
