package server

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// Config configures the review API.
type Config struct {
	Host       string
	Port       int
	PathPrefix string // every route is mounted below it, e.g. /api/v1

	CORSEnabled bool
	CORSOrigins []string // empty allows any origin

	AuthEnabled bool
	AuthHeader  string // the key itself comes from API_KEY

	RateLimit int           // requests per minute per client, 0 disables
	CacheTTL  time.Duration // lifetime of cached /table responses

	ViewerIdleTTL time.Duration
	MaxViewers    int

	ReadTimeout time.Duration
	// WriteTimeout also bounds SSE and WebSocket responses, so streams
	// need it at 0.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MetricsEnabled bool
}

// DefaultConfig listens on localhost:8080 with auth and CORS off.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSOrigins:    []string{},
		AuthHeader:     "X-API-Key",
		RateLimit:      constants.DefaultRateLimit,
		CacheTTL:       constants.TableCacheTTL,
		ViewerIdleTTL:  constants.ViewerIdleTTL,
		MaxViewers:     constants.MaxViewers,
		ReadTimeout:    10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}

// Addr is the host:port the HTTP server binds.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return errors.NewValidationError("port", c.Port, "port out of range")
	case c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/"):
		return errors.NewValidationError("prefix", c.PathPrefix, "must start with /")
	case c.RateLimit < 0:
		return errors.NewValidationError("rate-limit", c.RateLimit, "must not be negative")
	case c.MaxViewers < 0:
		return errors.NewValidationError("max-viewers", c.MaxViewers, "must not be negative")
	}
	return nil
}

// withDefaults fills zero durations, limits and the auth header.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheTTL == 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.ViewerIdleTTL == 0 {
		c.ViewerIdleTTL = d.ViewerIdleTTL
	}
	if c.MaxViewers == 0 {
		c.MaxViewers = d.MaxViewers
	}
	if c.AuthHeader == "" {
		c.AuthHeader = d.AuthHeader
	}
	c.PathPrefix = strings.TrimSuffix(c.PathPrefix, "/")
	return c
}
