// Package sse streams review events to HTTP clients as Server-Sent Events.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/constants"
)

const (
	// DefaultHeartbeat is how often an idle stream gets a comment line so
	// proxies keep it open.
	DefaultHeartbeat = 15 * time.Second

	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis = 3000
)

// Event is one SSE frame. Viewer restricts delivery to streams opened
// with the same ?viewer=; it is not written to the wire.
type Event struct {
	Event  string `json:"event,omitempty"`
	ID     string `json:"id,omitempty"`
	Viewer string `json:"-"`
	Data   any    `json:"data"`
}

// encode renders e in the text/event-stream format.
func (e Event) encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if e.Event != "" {
		buf.WriteString("event: " + e.Event + "\n")
	}
	if e.ID != "" {
		buf.WriteString("id: " + e.ID + "\n")
	}
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

type stream struct {
	ch     chan Event
	viewer string
}

// wants reports whether the stream should see e. Table events carry no
// viewer and reach everyone.
func (s *stream) wants(e Event) bool {
	return s.viewer == "" || e.Viewer == "" || s.viewer == e.Viewer
}

// Broadcaster fans events out to open SSE streams.
type Broadcaster struct {
	queue     chan Event
	done      chan struct{}
	heartbeat time.Duration
	logger    *zerolog.Logger

	mu      sync.RWMutex
	streams map[*stream]struct{}
}

// NewBroadcaster creates a broadcaster with the default heartbeat.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		queue:     make(chan Event, constants.ChannelBufferSize),
		done:      make(chan struct{}),
		heartbeat: DefaultHeartbeat,
		logger:    logger,
		streams:   make(map[*stream]struct{}),
	}
}

// Run fans out queued events until ctx ends. Open streams close when it
// returns.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case e := <-b.queue:
			b.fanOut(e)
		case <-ctx.Done():
			b.logger.Info().Msg("SSE broadcaster stopped")
			return
		}
	}
}

func (b *Broadcaster) fanOut(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.streams {
		if !s.wants(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.logger.Warn().Str("viewer", s.viewer).Str("event", e.Event).Msg("SSE stream lagging, event skipped")
		}
	}
}

// Broadcast queues e without blocking. A full queue drops it.
func (b *Broadcaster) Broadcast(e Event) {
	select {
	case b.queue <- e:
	default:
		b.logger.Warn().Str("event", e.Event).Msg("SSE queue full, event dropped")
	}
}

// ClientCount returns the number of open streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

func (b *Broadcaster) attach(s *stream) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams[s] = struct{}{}
	return len(b.streams)
}

func (b *Broadcaster) detach(s *stream) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.streams, s)
	return len(b.streams)
}

// ServeHTTP holds the stream open until the client leaves, a write fails
// or the broadcaster stops. ?viewer= limits view events to one viewer.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	s := &stream{ch: make(chan Event, constants.ChannelBufferSize), viewer: r.URL.Query().Get("viewer")}
	log := b.logger.With().Str("viewer", s.viewer).Logger()
	log.Info().Int("streams", b.attach(s)).Msg("SSE stream opened")
	defer func() { log.Info().Int("streams", b.detach(s)).Msg("SSE stream closed") }()

	send := func(p []byte) bool {
		if _, err := w.Write(p); err != nil {
			log.Debug().Err(err).Msg("SSE write failed")
			return false
		}
		flusher.Flush()
		return true
	}

	hello, _ := Event{Event: "client.connected", Data: map[string]any{"viewer": s.viewer}}.encode()
	if !send(append([]byte("retry: "+strconv.Itoa(retryMillis)+"\n"), hello...)) {
		return
	}

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case e := <-s.ch:
			frame, err := e.encode()
			if err != nil {
				log.Error().Err(err).Str("event", e.Event).Msg("Unencodable SSE event")
				continue
			}
			if !send(frame) {
				return
			}
		case <-ticker.C:
			if !send([]byte(": keepalive\n\n")) {
				return
			}
		case <-r.Context().Done():
			return
		case <-b.done:
			return
		}
	}
}
