// Package events fans review engine events out to realtime transports.
//
// Engine hooks publish to a Broker, which hands every event to its
// subscribers (the WebSocket hub and the SSE broadcaster) so each transport
// only has to know how to frame an Event.
package events

import (
	"github.com/agentstation/utc"
	"github.com/oklog/ulid/v2"
)

// EventType names what happened.
type EventType string

// Table events come from the server's shared watcher; view events carry the
// ID of the viewer they belong to.
const (
	RowAdded   EventType = "row.added"
	RowUpdated EventType = "row.updated"
	RowRemoved EventType = "row.removed"
	PollFailed EventType = "poll.failed"

	ViewChanged     EventType = "view.changed"
	ViewConflict    EventType = "view.conflict"
	AnnotationSaved EventType = "annotation.saved"

	ClientConnected EventType = "client.connected"
)

// Event is one published occurrence. IDs are ULIDs, so they sort by
// publication time.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Viewer    string    `json:"viewer,omitempty"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}

// New stamps an event with a fresh ID and the current time.
func New(eventType EventType, viewer string, data any) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Viewer:    viewer,
		Timestamp: utc.Now(),
		Data:      data,
	}
}

// For reports whether a subscriber watching viewer should receive e.
// Table events go to everyone; view events only to their viewer. An empty
// viewer receives everything.
func (e Event) For(viewer string) bool {
	return viewer == "" || e.Viewer == "" || e.Viewer == viewer
}
