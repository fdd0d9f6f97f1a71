// Package server provides the HTTP server for the review API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/metrics"
	"github.com/agentstation/sheetreview/internal/server/cache"
	"github.com/agentstation/sheetreview/internal/server/events"
	"github.com/agentstation/sheetreview/internal/server/events/adapters"
	"github.com/agentstation/sheetreview/internal/server/middleware"
	"github.com/agentstation/sheetreview/internal/server/sse"
	"github.com/agentstation/sheetreview/internal/server/viewers"
	ws "github.com/agentstation/sheetreview/internal/server/websocket"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/table"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app            application.Application
	metrics        *metrics.Metrics
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	registry       *viewers.Registry
	watcher        sheetreview.Client
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startTime      time.Time
}

// New creates a new server instance with the given configuration. It opens
// the shared watcher client, which starts polling immediately.
func New(app application.Application, cfg Config) (*Server, error) {
	logger := app.Logger()
	m := app.Metrics()

	logger.Debug().Msg("Creating new server instance")

	cfg = cfg.withDefaults()

	broker := events.NewBroker(logger, func(e events.Event) {
		m.EventPublished(string(e.Type))
	})
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	// Subscribing before Run is safe; the broker only starts delivering
	// once Start runs it.
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))
	logger.Debug().Msg("Realtime transports subscribed to event broker")

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		app:            app,
		metrics:        m,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	watcher, err := app.Client(ctx, sheetreview.WithPolling(true))
	if err != nil {
		cancel()
		return nil, errors.WrapResource("create", "watcher", "", err)
	}
	s.watcher = watcher
	s.connectTableHooks()

	s.registry = viewers.New(app.Client, logger,
		viewers.WithIdleTTL(cfg.ViewerIdleTTL),
		viewers.WithMaxViewers(cfg.MaxViewers),
		viewers.OnOpen(s.connectViewerHooks),
		viewers.OnClose(func(*viewers.Viewer) { m.ViewerClosed() }),
	)

	logger.Debug().Msg("Server instance created successfully")
	return s, nil
}

// connectTableHooks publishes the shared watcher's table changes. Row
// events are not tied to a viewer, so every stream receives them.
func (s *Server) connectTableHooks() {
	s.watcher.OnRowAdded(func(row table.Row) {
		s.broker.Publish(events.RowAdded, "", map[string]any{"row": row})
	})
	s.watcher.OnRowUpdated(func(old, updated table.Row) {
		s.broker.Publish(events.RowUpdated, "", map[string]any{
			"old_row": old,
			"new_row": updated,
		})
	})
	s.watcher.OnRowRemoved(func(row table.Row) {
		s.broker.Publish(events.RowRemoved, "", map[string]any{"row": row})
	})
	s.watcher.OnPollFailed(func(err error) {
		s.broker.Publish(events.PollFailed, "", map[string]any{"error": err.Error()})
	})
	s.logger.Info().Msg("Table hooks connected to event broker")
}

// connectViewerHooks publishes a viewer's own events tagged with its ID.
func (s *Server) connectViewerHooks(v *viewers.Viewer) {
	s.metrics.ViewerOpened()

	v.Client.OnViewChanged(func(row table.Row) {
		s.broker.Publish(events.ViewChanged, v.ID, map[string]any{"row": row})
	})
	v.Client.OnConflict(func(n session.Notice) {
		s.broker.Publish(events.ViewConflict, v.ID, map[string]any{"notice": n})
	})
	v.Client.OnSaved(func(row table.Row) {
		s.broker.Publish(events.AnnotationSaved, v.ID, map[string]any{"row": row})
	})
}

// Start starts background services (broker, WebSocket hub, SSE
// broadcaster, rate limiter eviction).
func (s *Server) Start() {
	s.logger.Debug().Msg("Starting background services")

	run := func(fn func(context.Context)) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			fn(s.ctx)
		}()
	}
	run(s.broker.Run)
	run(s.wsHub.Run)
	run(s.sseBroadcaster.Run)
	if s.rateLimiter != nil {
		run(s.rateLimiter.Run)
	}

	s.logger.Debug().Msg("All background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown closes every viewer and the watcher, then stops background
// services and waits for them until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")

	s.registry.CloseAll()
	if err := s.watcher.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Closing watcher failed")
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return errors.NewTimeoutError("shutdown", constants.ShutdownTimeout.String(), "background services did not stop")
	}
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// Viewers returns the viewer registry.
func (s *Server) Viewers() *viewers.Registry {
	return s.registry
}

// Watcher returns the shared client behind the table endpoints.
func (s *Server) Watcher() sheetreview.Client {
	return s.watcher
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
