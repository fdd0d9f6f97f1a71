package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

type requestIDKey struct{}

// WithLogger stores logger in ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// Ensure stores fallback in ctx unless ctx already carries a logger, so a
// caller's request or viewer scope wins over a component's own logger.
func Ensure(ctx context.Context, fallback *zerolog.Logger) context.Context {
	if _, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return ctx
	}
	return WithLogger(ctx, fallback)
}

func scoped(ctx context.Context, fn func(zerolog.Context) zerolog.Context) context.Context {
	l := fn(FromContext(ctx).With()).Logger()
	return WithLogger(ctx, &l)
}

// WithRequestID records the HTTP request ID and adds it to the logger.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	return scoped(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("request_id", id) })
}

// RequestID returns the request ID stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithViewer tags log lines with a server viewer ID.
func WithViewer(ctx context.Context, viewerID string) context.Context {
	return scoped(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("viewer_id", viewerID) })
}

// WithSpreadsheet tags log lines with the remote table and sheet.
func WithSpreadsheet(ctx context.Context, tableID, sheet string) context.Context {
	return scoped(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("spreadsheet_id", tableID).Str("sheet", sheet)
	})
}

// WithRow tags log lines with the stable 0-based row index.
func WithRow(ctx context.Context, index int) context.Context {
	return scoped(ctx, func(c zerolog.Context) zerolog.Context { return c.Int("row", index) })
}

// WithOperation tags log lines with an engine operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	return scoped(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("operation", op) })
}
