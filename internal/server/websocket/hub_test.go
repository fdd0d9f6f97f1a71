package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// serve upgrades every request and attaches it to hub, filtered by the
// ?viewer= query.
func serve(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(r.RemoteAddr, r.URL.Query().Get("viewer"), hub, conn)
		hub.Register(c)
		go c.WritePump()
		go c.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	url := serve(t, hub)
	a := dial(t, url)
	b := dial(t, url)
	waitClients(t, hub, 2)

	hub.Broadcast(Message{ID: "1", Type: "row.added"})
	for _, conn := range []*websocket.Conn{a, b} {
		if msg := read(t, conn); msg.Type != "row.added" {
			t.Errorf("Type = %q, want row.added", msg.Type)
		}
	}
}

func TestHub_ViewerFilter(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, serve(t, hub)+"?viewer=v1")
	waitClients(t, hub, 1)

	hub.Broadcast(Message{ID: "1", Type: "view.changed", Viewer: "v2"})
	hub.Broadcast(Message{ID: "2", Type: "view.changed", Viewer: "v1"})

	if msg := read(t, conn); msg.ID != "2" {
		t.Errorf("delivered %q, want the v1 event", msg.ID)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, serve(t, hub))
	waitClients(t, hub, 1)

	_ = conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := dial(t, serve(t, hub))
	waitClients(t, hub, 1)
	cancel()
	waitClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	c := NewClient("c", "", hub, nil)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestMessage_DeliverTo(t *testing.T) {
	table := Message{Type: "row.added"}
	own := Message{Type: "view.changed", Viewer: "v1"}

	if !table.deliverTo("v1") || !table.deliverTo("") {
		t.Error("table messages go to every client")
	}
	if !own.deliverTo("v1") || !own.deliverTo("") {
		t.Error("view message not delivered to its viewer or to unfiltered clients")
	}
	if own.deliverTo("v2") {
		t.Error("view message leaked to another viewer")
	}
}
