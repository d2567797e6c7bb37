// Package mail models the mailbox provider: envelope shapes, the provider
// API surface, message classification, and outbound composition.
package mail

import "context"

// Mailbox is the interface the workflow engine uses to talk to the mail
// provider. Implementations: Gmail (REST, production) and Fake (in-memory,
// tests and dry runs). All calls are blocking; callers bound concurrency.
type Mailbox interface {
	// Profile returns the mailbox's own address.
	Profile(ctx context.Context) (string, error)

	// History returns ids of messages added since startHistoryID. The
	// provider expires old history ids; callers fall back to ListRecent.
	History(ctx context.Context, startHistoryID uint64) ([]string, error)

	// ListRecent returns the ids of the most recent n messages.
	ListRecent(ctx context.Context, n int) ([]string, error)

	// Get fetches the full envelope for a message id.
	Get(ctx context.Context, id string) (*Envelope, error)

	// Thread fetches all envelopes in a thread, oldest first.
	Thread(ctx context.Context, threadID string) ([]*Envelope, error)

	// Send transmits a raw RFC 2822 message. A non-empty threadID places
	// the message in an existing thread.
	Send(ctx context.Context, raw []byte, threadID string) (*SendResult, error)

	// Watch (re)registers push notifications to the given topic.
	Watch(ctx context.Context, topic string) error
}

// SendResult carries the provider-assigned identifiers of a sent message.
type SendResult struct {
	MessageID string
	ThreadID  string
}
