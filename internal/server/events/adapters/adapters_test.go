package adapters

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/internal/server/events"
	"github.com/agentstation/sheetreview/internal/server/sse"
	ws "github.com/agentstation/sheetreview/internal/server/websocket"
)

var (
	_ events.Subscriber = (*SSESubscriber)(nil)
	_ events.Subscriber = (*WebSocketSubscriber)(nil)
)

// TestSSESubscriber_EndToEnd publishes on a broker and reads the frame from
// an SSE stream.
func TestSSESubscriber_EndToEnd(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := sse.NewBroadcaster(&logger)
	go b.Run(ctx)
	broker := events.NewBroker(&logger, nil)
	broker.Subscribe(NewSSESubscriber(b))
	go broker.Run(ctx)

	srv := httptest.NewServer(b)
	defer srv.Close()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	frame := func() map[string]string {
		out := map[string]string{}
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return out
			}
			k, v, _ := strings.Cut(line, ": ")
			out[k] = v
		}
	}
	frame() // client.connected

	broker.Publish(events.AnnotationSaved, "v1", map[string]string{"annotation": "invite"})
	f := frame()
	if f["event"] != "annotation.saved" {
		t.Fatalf("event = %q", f["event"])
	}
	if f["id"] == "" {
		t.Error("frame has no id")
	}

	var got events.Event
	if err := json.Unmarshal([]byte(f["data"]), &got); err != nil {
		t.Fatal(err)
	}
	if got.Viewer != "v1" || got.ID != f["id"] {
		t.Errorf("decoded event %+v does not match frame", got)
	}
}

func TestWebSocketSubscriber_Send(t *testing.T) {
	logger := zerolog.Nop()
	hub := ws.NewHub(&logger)
	sub := NewWebSocketSubscriber(hub)

	e := events.New(events.RowUpdated, "", map[string]int{"index": 2})
	done := make(chan error, 1)
	go func() { done <- sub.Send(e) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send blocked without a running hub")
	}
	if err := sub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
