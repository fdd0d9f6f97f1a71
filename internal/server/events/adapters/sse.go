package adapters

import (
	"github.com/agentstation/sheetreview/internal/server/events"
	"github.com/agentstation/sheetreview/internal/server/sse"
)

// SSESubscriber forwards events to an SSE broadcaster.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber creates an SSESubscriber.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send implements events.Subscriber. The frame data is the whole event so
// stream readers see the viewer and timestamp too.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event:  string(event.Type),
		ID:     event.ID,
		Viewer: event.Viewer,
		Data:   event,
	})
	return nil
}

// Close implements events.Subscriber.
func (s *SSESubscriber) Close() error {
	return nil
}
