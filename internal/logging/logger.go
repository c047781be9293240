// Package logging builds the process logger: slog text records on stderr,
// optionally mirrored to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/movie-ratings/reelscrape/internal/model"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps the slog logger with the file sink it may own
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// New creates a logger from cfg writing to stderr. verbose forces debug level.
func New(cfg model.LogConfig, verbose bool) (*Logger, error) {
	return newLogger(cfg, verbose, os.Stderr)
}

func newLogger(cfg model.LogConfig, verbose bool, console io.Writer) (*Logger, error) {
	level, err := model.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	l := &Logger{}
	out := console
	if cfg.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(console, l.file)
	}

	l.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return l, nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
