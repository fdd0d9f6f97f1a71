package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingSubscriber keeps every event it receives.
type recordingSubscriber struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *recordingSubscriber) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSubscriber) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSubscriber) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBroker_SubscribeBeforeRun(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger, nil)

	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Publish(RowAdded, "", map[string]int{"index": 3})
	waitFor(t, func() bool { return len(sub.received()) == 1 })

	e := sub.received()[0]
	if e.Type != RowAdded {
		t.Errorf("Type = %s, want %s", e.Type, RowAdded)
	}
	if e.ID == "" {
		t.Error("event has no ID")
	}
}

func TestBroker_EventOrderAndIDs(t *testing.T) {
	logger := zerolog.Nop()
	var mu sync.Mutex
	var counted []EventType
	b := NewBroker(&logger, func(e Event) {
		mu.Lock()
		counted = append(counted, e.Type)
		mu.Unlock()
	})
	sub := &recordingSubscriber{}
	b.Subscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Publish(ViewChanged, "v1", nil)
	b.Publish(ViewConflict, "v1", nil)
	b.Publish(AnnotationSaved, "v1", nil)
	waitFor(t, func() bool { return len(sub.received()) == 3 })

	got := sub.received()
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Errorf("IDs not increasing: %s then %s", got[i-1].ID, got[i].ID)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(counted) != 3 {
		t.Errorf("published callback saw %d events, want 3", len(counted))
	}
}

func TestBroker_UnsubscribeCloses(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger, nil)
	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	b.Unsubscribe(sub)

	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount())
	}
	if !sub.closed {
		t.Error("subscriber not closed on unsubscribe")
	}
}

func TestBroker_ShutdownClosesSubscribers(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger, nil)
	sub := &recordingSubscriber{}
	b.Subscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broker did not stop")
	}
	if !sub.closed {
		t.Error("subscriber not closed on shutdown")
	}
}

func TestBroker_PublishNeverBlocks(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10*cap(b.queue); i++ {
			b.Publish(RowUpdated, "", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no running broker")
	}
}

func TestEvent_For(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		watcher string
		want    bool
	}{
		{"table event to viewer", Event{Type: RowAdded}, "v1", true},
		{"own view event", Event{Type: ViewChanged, Viewer: "v1"}, "v1", true},
		{"other view event", Event{Type: ViewChanged, Viewer: "v2"}, "v1", false},
		{"unfiltered watcher", Event{Type: ViewChanged, Viewer: "v2"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.For(tt.watcher); got != tt.want {
				t.Errorf("For(%q) = %v, want %v", tt.watcher, got, tt.want)
			}
		})
	}
}

func TestBroker_UnsubscribeUnknown(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger, nil)
	sub := &recordingSubscriber{}

	b.Unsubscribe(sub)
	if sub.closed {
		t.Error("unknown subscriber was closed")
	}
}

func TestBroker_DroppedEventsNotCounted(t *testing.T) {
	logger := zerolog.Nop()
	var mu sync.Mutex
	counted := 0
	b := NewBroker(&logger, func(Event) {
		mu.Lock()
		counted++
		mu.Unlock()
	})

	for i := 0; i < cap(b.queue)+5; i++ {
		b.Publish(RowAdded, "", i)
	}

	mu.Lock()
	defer mu.Unlock()
	if counted != cap(b.queue) {
		t.Errorf("counted %d events, want %d", counted, cap(b.queue))
	}
}
