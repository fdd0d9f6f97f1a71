package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/pkg/constants"
)

// Broker queues events from engine hooks and delivers them, in
// publication order, to every subscriber from a single goroutine.
type Broker struct {
	queue     chan Event
	published func(Event)
	logger    *zerolog.Logger

	mu   sync.RWMutex
	subs map[Subscriber]struct{}
}

// NewBroker creates a broker. published, when set, sees every event that
// made it into the queue; the server counts events with it.
func NewBroker(logger *zerolog.Logger, published func(Event)) *Broker {
	return &Broker{
		queue:     make(chan Event, constants.ChannelBufferSize),
		published: published,
		logger:    logger,
		subs:      make(map[Subscriber]struct{}),
	}
}

// Run delivers queued events until ctx ends, then closes and forgets all
// subscribers.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case e := <-b.queue:
			b.deliver(e)
		case <-ctx.Done():
			b.closeAll()
			b.logger.Info().Msg("Event broker stopped")
			return
		}
	}
}

func (b *Broker) deliver(e Event) {
	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subs))
	for s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(e); err != nil {
			b.logger.Warn().Err(err).Str("event_type", string(e.Type)).Msg("Subscriber rejected event")
		}
	}
	b.logger.Trace().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("viewer", e.Viewer).
		Int("subscribers", len(targets)).
		Msg("Event delivered")
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		_ = s.Close()
	}
	clear(b.subs)
}

// Publish stamps and queues an event for viewer, or for everyone when
// viewer is empty. A full queue drops the event rather than stall the
// engine hook that published it.
func (b *Broker) Publish(eventType EventType, viewer string, data any) {
	e := New(eventType, viewer, data)
	select {
	case b.queue <- e:
	default:
		b.logger.Warn().Str("event_type", string(eventType)).Msg("Event queue full, dropping event")
		return
	}
	if b.published != nil {
		b.published(e)
	}
}

// Subscribe registers s. Subscribing before Run is fine.
func (b *Broker) Subscribe(s Subscriber) {
	b.mu.Lock()
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	b.logger.Debug().Int("subscribers", n).Msg("Subscriber added")
}

// Unsubscribe removes s and closes it. Unknown subscribers are ignored.
func (b *Broker) Unsubscribe(s Subscriber) {
	b.mu.Lock()
	_, ok := b.subs[s]
	delete(b.subs, s)
	n := len(b.subs)
	b.mu.Unlock()
	if !ok {
		return
	}
	_ = s.Close()
	b.logger.Debug().Int("subscribers", n).Msg("Subscriber removed")
}

// SubscriberCount returns how many subscribers are registered.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
