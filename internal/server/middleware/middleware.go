// Package middleware provides the HTTP middleware of the review API:
// request logging, panic recovery, request counting, CORS, API-key auth
// and per-client rate limiting.
package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Chain composes middleware so the first one listed runs first.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Logger logs every request and puts a request-scoped logger in the
// request context. Server errors log at error level, client errors at warn.
func Logger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = ulid.Make().String()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := logging.WithRequestID(logging.WithLogger(r.Context(), logger), id)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			var ev *zerolog.Event
			switch {
			case wrapped.statusCode >= 500:
				ev = logger.Error()
			case wrapped.statusCode >= 400:
				ev = logger.Warn()
			default:
				ev = logger.Info()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration_ms", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", id).
				Msg("HTTP request")
		})
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					writeError(w, http.StatusInternalServerError,
						`{"data":null,"error":{"code":"INTERNAL_ERROR","message":"Internal server error","details":"An unexpected error occurred"}}`)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Observe reports the method and final status of every request to fn.
func Observe(fn func(method string, status int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)
			fn(r.Method, wrapped.statusCode)
		})
	}
}

func writeError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// responseWriter records the status code. It passes Flush and Hijack
// through so SSE and WebSocket handlers work behind it.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		rw.statusCode = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
