// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"hacksstv/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup points the global logger at console, plus a rotating file when
// cfg.File is set. console may be nil to log to the file only. pretty selects
// the human-readable console format over JSON. The returned Closer releases
// the file.
func Setup(cfg config.Logging, console io.Writer, pretty bool) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logWriters []io.Writer
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
			return nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    1,
			MaxBackups: 2,
		}
		logWriters = append(logWriters, lj)
		closer = lj
	}
	if console != nil {
		if pretty {
			console = zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}
		}
		logWriters = append(logWriters, console)
	}

	var out io.Writer = io.Discard
	if len(logWriters) > 0 {
		out = io.MultiWriter(logWriters...)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}
