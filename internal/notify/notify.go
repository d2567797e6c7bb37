// Package notify delivers mailbox push notifications to the workflow
// engine: a queue Subscriber plus the ingestor that turns a notification
// into message ids.
package notify

import "context"

// Event is one push-notification delivery. Payload is the provider's
// notification JSON; Ack must be called exactly once after local
// processing, regardless of outcome.
type Event struct {
	Payload []byte
	ack     func() error
}

// Ack acknowledges the delivery to the broker. Safe to call on events
// without a broker ack (tests); returns the broker error otherwise.
func (e *Event) Ack() error {
	if e.ack == nil {
		return nil
	}
	return e.ack()
}

// NewEvent builds an Event with an explicit ack hook; used by tests and
// non-broker feeds.
func NewEvent(payload []byte, ack func() error) Event {
	return Event{Payload: payload, ack: ack}
}

// Subscriber is a stream of push-notification events. Listen's channel
// closes when the subscription ends; Close tears the subscription down.
type Subscriber interface {
	Listen(ctx context.Context) (<-chan Event, error)
	Close() error
}
