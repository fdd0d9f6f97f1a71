// Package logging wires zerolog for sheetreview. A process-wide default
// logger is configured once by the CLI; request, viewer and row scoped
// loggers travel in a context.Context so the engine and the HTTP layer
// annotate the same log lines.
//
//	ctx = logging.WithViewer(ctx, viewerID)
//	logging.FromContext(ctx).Info().Int("row", 12).Msg("Row changed remotely")
package logging

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	logger := New(ConfigFromEnv())
	current.Store(&logger)
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return current.Load()
}

// SetDefault replaces the process-wide logger. The zerolog global logger
// follows so third-party code logging through zerolog/log lands in the
// same sink.
func SetDefault(logger zerolog.Logger) {
	current.Store(&logger)
	log.Logger = logger
}

// NewNopLogger returns a logger that drops everything.
func NewNopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
