package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory Mailbox for tests and dry runs. Sent messages are
// parsed just enough to appear in thread history with their headers.
type Fake struct {
	mu         sync.Mutex
	address    string
	envelopes  map[string]*Envelope
	order      []string
	threads    map[string][]string
	historySeq map[string]uint64
	nextSeq    uint64
	watched    string

	// FailSends makes the next n Send calls fail; used to exercise retry.
	FailSends int
	// ProfileErr makes Profile fail when set.
	ProfileErr error
}

// NewFake creates a Fake mailbox with the given own address.
func NewFake(address string) *Fake {
	return &Fake{
		address:    address,
		envelopes:  make(map[string]*Envelope),
		threads:    make(map[string][]string),
		historySeq: make(map[string]uint64),
	}
}

// Profile implements Mailbox.
func (f *Fake) Profile(ctx context.Context) (string, error) {
	if f.ProfileErr != nil {
		return "", f.ProfileErr
	}
	return f.address, nil
}

// Deliver registers an inbound envelope as if the provider had received
// it, assigning ids when absent. Returns the message id.
func (f *Fake) Deliver(env *Envelope) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.ThreadID == "" {
		env.ThreadID = uuid.NewString()
	}
	f.record(env)
	return env.ID
}

// record stores an envelope under the lock.
func (f *Fake) record(env *Envelope) {
	f.nextSeq++
	f.envelopes[env.ID] = env
	f.order = append(f.order, env.ID)
	f.threads[env.ThreadID] = append(f.threads[env.ThreadID], env.ID)
	f.historySeq[env.ID] = f.nextSeq
}

// HistoryID returns the current history position, for building
// notification payloads in tests.
func (f *Fake) HistoryID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextSeq
}

// History implements Mailbox: ids of messages recorded at or after
// startHistoryID.
func (f *Fake) History(ctx context.Context, startHistoryID uint64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, id := range f.order {
		if f.historySeq[id] >= startHistoryID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListRecent implements Mailbox.
func (f *Fake) ListRecent(ctx context.Context, n int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := len(f.order) - n
	if start < 0 {
		start = 0
	}
	recent := f.order[start:]
	// Newest first, matching the provider.
	ids := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		ids = append(ids, recent[i])
	}
	return ids, nil
}

// Get implements Mailbox.
func (f *Fake) Get(ctx context.Context, id string) (*Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok := f.envelopes[id]
	if !ok {
		return nil, fmt.Errorf("mail: fake: message not found: %s", id)
	}
	return env, nil
}

// Thread implements Mailbox.
func (f *Fake) Thread(ctx context.Context, threadID string) ([]*Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("mail: fake: thread not found: %s", threadID)
	}
	msgs := make([]*Envelope, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, f.envelopes[id])
	}
	return msgs, nil
}

// Send implements Mailbox. The raw message's headers are parsed so the
// sent message shows up in thread history as agent-authored.
func (f *Fake) Send(ctx context.Context, raw []byte, threadID string) (*SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSends > 0 {
		f.FailSends--
		return nil, fmt.Errorf("mail: fake: injected send failure")
	}

	headers, body := parseRaw(raw)
	id := uuid.NewString()
	if threadID == "" {
		threadID = uuid.NewString()
	}

	env := &Envelope{
		ID:       id,
		ThreadID: threadID,
		Snippet:  snippetOf(body),
		Payload: &Part{
			MimeType: "text/html",
			Headers:  append(headers, Header{Name: "From", Value: f.address}, Header{Name: "Message-Id", Value: "<" + id + "@fake>"}),
		},
	}
	f.record(env)

	return &SendResult{MessageID: id, ThreadID: threadID}, nil
}

// Watch implements Mailbox.
func (f *Fake) Watch(ctx context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = topic
	return nil
}

// WatchedTopic returns the last topic passed to Watch.
func (f *Fake) WatchedTopic() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watched
}

// parseRaw splits a raw RFC 2822 message into headers and body.
func parseRaw(raw []byte) ([]Header, string) {
	head, body, _ := strings.Cut(string(raw), "\r\n\r\n")
	var headers []Header
	for _, line := range strings.Split(head, "\r\n") {
		if name, value, ok := strings.Cut(line, ": "); ok {
			headers = append(headers, Header{Name: name, Value: value})
		}
	}
	return headers, body
}

// snippetOf truncates a body to a provider-style snippet.
func snippetOf(body string) string {
	const max = 120
	if len(body) <= max {
		return body
	}
	return body[:max]
}
