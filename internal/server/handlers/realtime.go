package handlers

import (
	"net/http"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/agentstation/sheetreview/internal/server/events"
	ws "github.com/agentstation/sheetreview/internal/server/websocket"
)

// HandleWebSocket handles WebSocket connections at /api/v1/updates/ws.
// Pass ?viewer=<id> to receive only that viewer's events plus the shared
// table events.
// @Summary WebSocket updates
// @Description WebSocket connection for real-time table and viewer events
// @Tags updates
// @Param viewer query string false "Viewer ID filter"
// @Success 101 "Switching Protocols"
// @Router /api/v1/updates/ws [get].
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	viewer := r.URL.Query().Get("viewer")
	client := ws.NewClient(uuid.NewString(), viewer, h.wsHub, conn)
	h.wsHub.Register(client)
	client.Send(ws.Message{
		ID:        ulid.Make().String(),
		Type:      string(events.ClientConnected),
		Viewer:    viewer,
		Timestamp: utc.Now(),
		Data:      map[string]any{"viewer": viewer},
	})

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles Server-Sent Events at /api/v1/updates/stream.
// @Summary SSE updates stream
// @Description Server-Sent Events stream of table and viewer events
// @Tags updates
// @Param viewer query string false "Viewer ID filter"
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Router /api/v1/updates/stream [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
