package logging

import (
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/logger"
)

// WailsLogger routes Wails runtime logs into a zerolog logger.
type WailsLogger struct {
	log zerolog.Logger
}

var _ logger.Logger = (*WailsLogger)(nil)

// NewWailsLogger wraps log for use as options.App.Logger.
func NewWailsLogger(log zerolog.Logger) *WailsLogger {
	return &WailsLogger{log: log.With().Str("source", "wails").Logger()}
}

func (w *WailsLogger) Print(message string)   { w.log.Log().Msg(message) }
func (w *WailsLogger) Trace(message string)   { w.log.Trace().Msg(message) }
func (w *WailsLogger) Debug(message string)   { w.log.Debug().Msg(message) }
func (w *WailsLogger) Info(message string)    { w.log.Info().Msg(message) }
func (w *WailsLogger) Warning(message string) { w.log.Warn().Msg(message) }
func (w *WailsLogger) Error(message string)   { w.log.Error().Msg(message) }

// Fatal logs the message and exits the process with status 1.
func (w *WailsLogger) Fatal(message string) { w.log.Fatal().Msg(message) }
