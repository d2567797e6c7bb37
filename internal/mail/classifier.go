package mail

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Skip reasons returned by the validation gate.
const (
	SkipSelfEcho     = "self-echo"        // From contains the agent's address
	SkipNotAddressed = "not-addressed"    // To lacks the agent's address
	SkipAutomated    = "automated-sender" // From contains "noreply"
)

// Inbound is a classified inbound message, ready for the orchestrator.
type Inbound struct {
	MessageID       string
	ThreadID        string
	From            string
	To              string
	Subject         string
	MessageIDHeader string // RFC Message-Id, used for reply binding
	SenderEmail     string // bare address parsed from From
	AgentAuthored   bool
	Body            string
}

// addrRe extracts the bare address from a "Name <email>" header value.
var addrRe = regexp.MustCompile(`<([^>]+)>`)

// ExtractAddress returns the bare email address from a From/To header
// value, handling the "Name <email>" format.
func ExtractAddress(header string) string {
	if m := addrRe.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return strings.TrimSpace(header)
}

// Classifier fetches and classifies inbound envelopes. The agent's own
// address is resolved once (config value or live profile lookup) and
// cached.
type Classifier struct {
	mailbox Mailbox

	mu        sync.Mutex
	agentAddr string
}

// NewClassifier creates a Classifier. agentAddr may be empty, in which
// case the first AgentAddress call resolves it from the mailbox profile.
func NewClassifier(mailbox Mailbox, agentAddr string) (*Classifier, error) {
	if mailbox == nil {
		return nil, fmt.Errorf("mail: classifier: mailbox is required")
	}
	return &Classifier{mailbox: mailbox, agentAddr: agentAddr}, nil
}

// AgentAddress returns the agent's own address, resolving and caching it
// on first use.
func (c *Classifier) AgentAddress(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agentAddr != "" {
		return c.agentAddr, nil
	}
	addr, err := c.mailbox.Profile(ctx)
	if err != nil {
		return "", fmt.Errorf("mail: resolve agent address: %w", err)
	}
	c.agentAddr = addr
	return addr, nil
}

// Classify fetches the envelope for id and extracts headers, direction,
// and body.
func (c *Classifier) Classify(ctx context.Context, id string) (*Inbound, error) {
	env, err := c.mailbox.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mail: fetch message %s: %w", id, err)
	}
	if env.ThreadID == "" {
		return nil, fmt.Errorf("mail: message %s has no thread id", id)
	}

	agentAddr, err := c.AgentAddress(ctx)
	if err != nil {
		return nil, err
	}

	from := env.Header("From")
	in := &Inbound{
		MessageID:       env.ID,
		ThreadID:        env.ThreadID,
		From:            from,
		To:              env.Header("To"),
		Subject:         env.Header("Subject"),
		MessageIDHeader: env.Header("Message-Id"),
		SenderEmail:     ExtractAddress(from),
		AgentAuthored:   containsFold(from, agentAddr),
		Body:            ExtractBody(env),
	}
	return in, nil
}

// Gate applies the validation rules to a classified message. It returns an
// empty string when the message should be processed, or a skip reason.
func Gate(in *Inbound, agentAddr string) string {
	if in.AgentAuthored {
		return SkipSelfEcho
	}
	if !containsFold(in.To, agentAddr) {
		return SkipNotAddressed
	}
	if containsFold(in.From, "noreply") {
		return SkipAutomated
	}
	return ""
}

// containsFold reports whether substr occurs in s, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
