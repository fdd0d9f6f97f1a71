// Package websocket streams review events to WebSocket clients.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/constants"
)

// Message is one event frame written to clients.
type Message struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Viewer    string   `json:"viewer,omitempty"`
	Timestamp utc.Time `json:"timestamp"`
	Data      any      `json:"data"`
}

// deliverTo reports whether a client following viewer gets m. Messages
// without a viewer are table-wide.
func (m Message) deliverTo(viewer string) bool {
	return viewer == "" || m.Viewer == "" || m.Viewer == viewer
}

// Hub tracks connected clients and broadcasts messages to them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	broadcast chan Message
	logger    *zerolog.Logger
}

// NewHub creates a WebSocket hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, constants.ChannelBufferSize),
		logger:    logger,
	}
}

// Run delivers broadcasts until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info().Msg("WebSocket hub shut down")
			return

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for c := range h.clients {
				if !msg.deliverTo(c.viewer) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()

			for _, c := range slow {
				h.logger.Warn().Str("client_id", c.id).Msg("WebSocket client too slow, disconnecting")
				h.Unregister(c)
			}
		}
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().
		Str("client_id", c.id).
		Str("viewer", c.viewer).
		Int("total_clients", n).
		Msg("WebSocket client connected")
}

// Unregister removes a client and closes its send queue. Calling it twice
// is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info().
			Str("client_id", c.id).
			Int("total_clients", n).
			Msg("WebSocket client disconnected")
	}
}

// Broadcast queues a message for all clients.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn().Msg("Broadcast channel full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one WebSocket connection.
type Client struct {
	id     string
	viewer string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
}

// NewClient creates a client. A non-empty viewer limits view events to
// that viewer.
func NewClient(id, viewer string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:     id,
		viewer: viewer,
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, constants.ChannelBufferSize),
	}
}

// Send queues a message for this client only.
func (c *Client) Send(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// ReadPump drains the connection so control frames are processed. Clients
// do not send commands over the socket; it returns when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}
	}
}

// WritePump writes queued messages and keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Unregistered: hub stopped or this client fell behind.
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "event stream closed"))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Debug().Err(err).Str("client_id", c.id).Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
