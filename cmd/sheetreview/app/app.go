// Package app provides the application context and dependency management
// for the sheetreview CLI. It centralizes configuration, logging, the
// gateway to the remote table and lifecycle management.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/metrics"
	"github.com/agentstation/sheetreview/internal/snapshotcache"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/gateway"
)

// App represents the sheetreview application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	metrics *metrics.Metrics

	// Gateway and snapshot cache (lazy-initialized, shared by all clients)
	mu      sync.Mutex
	gateway gateway.Gateway
	cache   *snapshotcache.Cache
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		metrics: metrics.New(),
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config, "")
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Metrics returns the process-wide collectors.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Gateway returns the gateway to the remote table, creating it on first
// use.
func (a *App) Gateway(ctx context.Context) (gateway.Gateway, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gateway != nil {
		return a.gateway, nil
	}
	if err := a.config.Validate(); err != nil {
		return nil, err
	}
	gw, err := newGateway(ctx, a.config, a.logger)
	if err != nil {
		return nil, errors.WrapResource("create", "gateway", a.config.Backend, err)
	}
	a.gateway = gw
	return gw, nil
}

// Client creates a review client from the configuration. opts override the
// configured options.
func (a *App) Client(ctx context.Context, opts ...sheetreview.Option) (sheetreview.Client, error) {
	gw, err := a.Gateway(ctx)
	if err != nil {
		return nil, err
	}

	base, err := a.clientOptions()
	if err != nil {
		return nil, err
	}

	c, err := sheetreview.New(gw, append(base, opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.TableID(), err)
	}
	return c, nil
}

// clientOptions translates the configuration into client options.
func (a *App) clientOptions() ([]sheetreview.Option, error) {
	cfg := a.config

	opts := []sheetreview.Option{
		sheetreview.WithSpreadsheetID(cfg.TableID()),
		sheetreview.WithSheetName(cfg.SheetName),
		sheetreview.WithPolling(false),
		sheetreview.WithPollInterval(cfg.PollInterval),
		sheetreview.WithRecorder(a.metrics),
		sheetreview.WithLogger(a.logger),
	}
	if cfg.PollTimeout > 0 {
		opts = append(opts, sheetreview.WithPollTimeout(cfg.PollTimeout))
	}

	if cfg.LastColumn != "" {
		n, err := ParseColumn(cfg.LastColumn)
		if err != nil {
			return nil, errors.WrapValidation("last_column", err)
		}
		opts = append(opts, sheetreview.WithLastColumn(n))
	}
	if cfg.AnnotationColumn != "" {
		n, err := ParseColumn(cfg.AnnotationColumn)
		if err != nil {
			return nil, errors.WrapValidation("annotation_column", err)
		}
		opts = append(opts, sheetreview.WithAnnotationColumn(n-1))
	}

	if len(cfg.SectionColumns) > 0 {
		cols := make([]int, len(cfg.SectionColumns))
		for i, s := range cfg.SectionColumns {
			n, err := ParseColumn(s)
			if err != nil {
				return nil, errors.WrapValidation("section_columns", err)
			}
			cols[i] = n - 1
		}
		opts = append(opts, sheetreview.WithSections(cols, cfg.SectionVocabulary))
	}

	if cfg.CacheEnabled && cfg.CachePath != "" {
		cache, err := a.snapshotCache()
		if err != nil {
			// The cache only speeds up the first render.
			a.logger.Warn().Err(err).Str("path", cfg.CachePath).Msg("Snapshot cache unavailable")
		} else {
			opts = append(opts, sheetreview.WithSnapshotCache(cache))
		}
	}

	return opts, nil
}

func (a *App) snapshotCache() (*snapshotcache.Cache, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cache != nil {
		return a.cache, nil
	}
	cache, err := snapshotcache.New(ExpandPath(a.config.CachePath))
	if err != nil {
		return nil, err
	}
	a.cache = cache
	return cache, nil
}

// Shutdown performs graceful shutdown of the application. Commands close
// their own clients, which persists their snapshots.
func (a *App) Shutdown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.logger.Debug().Str("backend", a.config.Backend).Msg("Application shut down")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithGateway sets the gateway instead of building one from the
// configuration (useful for testing).
func WithGateway(gw gateway.Gateway) Option {
	return func(a *App) error {
		a.gateway = gw
		return nil
	}
}
