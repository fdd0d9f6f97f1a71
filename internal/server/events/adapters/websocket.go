// Package adapters connects the event broker to the realtime transports.
package adapters

import (
	"github.com/agentstation/sheetreview/internal/server/events"
	ws "github.com/agentstation/sheetreview/internal/server/websocket"
)

// WebSocketSubscriber forwards events to a WebSocket hub.
type WebSocketSubscriber struct {
	hub *ws.Hub
}

// NewWebSocketSubscriber creates a WebSocketSubscriber.
func NewWebSocketSubscriber(hub *ws.Hub) *WebSocketSubscriber {
	return &WebSocketSubscriber{hub: hub}
}

// Send implements events.Subscriber.
func (w *WebSocketSubscriber) Send(event events.Event) error {
	w.hub.Broadcast(ws.Message{
		ID:        event.ID,
		Type:      string(event.Type),
		Viewer:    event.Viewer,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	return nil
}

// Close implements events.Subscriber. The hub stops with its own context.
func (w *WebSocketSubscriber) Close() error {
	return nil
}
