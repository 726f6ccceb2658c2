// Package logging sets up the backend logger and bridges framework and frontend logs into it.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls where and how verbosely the backend logs.
type Options struct {
	Level   string
	File    string
	Console bool
}

// New returns a logger writing JSON lines to opts.File and, when opts.Console
// is set, human readable lines to stderr. The returned closer flushes the file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opts.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LogFromFrontend records an entry forwarded by the web UI. Unknown levels are logged as info.
func LogFromFrontend(logger zerolog.Logger, level, message, timestamp string, fields map[string]interface{}) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel || lvl > zerolog.ErrorLevel {
		lvl = zerolog.InfoLevel
	}

	event := logger.WithLevel(lvl).Str("source", "frontend")
	if timestamp != "" {
		event = event.Str("frontend_time", timestamp)
	}
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(message)
}
