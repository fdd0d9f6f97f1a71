package events

// Subscriber is a transport fed by the Broker. Send is called from the
// broker goroutine and must hand the event off without blocking.
type Subscriber interface {
	Send(Event) error
	Close() error
}
