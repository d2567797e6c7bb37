package mail

import "strings"

// BuildOutgoing builds the raw RFC 2822 message for a new conversation.
// The body is HTML; the provider expects the raw bytes base64url-encoded
// on the wire, which the Mailbox implementation handles.
func BuildOutgoing(to, subject, htmlBody string) []byte {
	lines := []string{
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		htmlBody,
	}
	return []byte(strings.Join(lines, "\r\n"))
}

// BuildReply builds the raw message for an in-thread reply, binding
// In-Reply-To and References to the replied-to message's Message-Id.
func BuildReply(to, subject, inReplyTo, htmlBody string) []byte {
	lines := []string{
		"To: " + to,
		"Subject: " + subject,
		"In-Reply-To: " + inReplyTo,
		"References: " + inReplyTo,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		htmlBody,
	}
	return []byte(strings.Join(lines, "\r\n"))
}

// ReplySubject prefixes "Re: " unless the subject already carries it.
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}

// LatestExternal returns the most recent envelope in a thread not authored
// by the agent, or nil when every message is the agent's own.
func LatestExternal(msgs []*Envelope, agentAddr string) *Envelope {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] == nil {
			continue
		}
		if !containsFold(msgs[i].Header("From"), agentAddr) {
			return msgs[i]
		}
	}
	return nil
}
