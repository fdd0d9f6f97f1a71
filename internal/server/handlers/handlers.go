// Package handlers provides HTTP request handlers for the review API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/server/cache"
	"github.com/agentstation/sheetreview/internal/server/sse"
	"github.com/agentstation/sheetreview/internal/server/viewers"
	ws "github.com/agentstation/sheetreview/internal/server/websocket"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	app            application.Application
	registry       *viewers.Registry
	watcher        sheetreview.Client
	cache          *cache.Cache
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	started        time.Time
}

// New creates a new Handlers instance. The watcher is the server's shared
// client that backs the table, readiness and stats endpoints.
func New(
	app application.Application,
	registry *viewers.Registry,
	watcher sheetreview.Client,
	cache *cache.Cache,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		app:            app,
		registry:       registry,
		watcher:        watcher,
		cache:          cache,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		started:        time.Now(),
	}
}

// decode reads a JSON request body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, constants.MaxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.NewValidationError("body", nil, "invalid JSON body: "+err.Error())
	}
	return nil
}
