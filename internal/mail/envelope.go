package mail

import (
	"encoding/base64"
	"strings"
)

// Envelope is the provider's message shape: identifiers, a short snippet,
// and a recursive MIME payload tree.
type Envelope struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Payload  *Part  `json:"payload"`
}

// Part is one node of the MIME tree. Leaf parts carry body data; multipart
// containers carry child parts.
type Part struct {
	MimeType string   `json:"mimeType"`
	Headers  []Header `json:"headers"`
	Body     *Body    `json:"body"`
	Parts    []*Part  `json:"parts"`
}

// Header is a single name/value pair from the message payload.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Body holds base64url-encoded part content.
type Body struct {
	Data string `json:"data"`
}

// Header returns the value of the named header on the top-level payload,
// matched case-insensitively. Empty when absent.
func (e *Envelope) Header(name string) string {
	if e.Payload == nil {
		return ""
	}
	return headerValue(e.Payload.Headers, name)
}

// headerValue finds the first header with the given name, case-insensitive.
func headerValue(headers []Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decodeData decodes base64url part content. The provider omits padding, so
// the raw URL alphabet is tried first.
func decodeData(data string) (string, bool) {
	if data == "" {
		return "", false
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	return "", false
}

// findPart walks the MIME tree depth-first and returns the first leaf part
// with the given mime type and non-empty body data.
func findPart(p *Part, mimeType string) *Part {
	if p == nil {
		return nil
	}
	for _, child := range p.Parts {
		if child == nil {
			continue
		}
		if child.MimeType == mimeType && child.Body != nil && child.Body.Data != "" {
			return child
		}
		if found := findPart(child, mimeType); found != nil {
			return found
		}
	}
	return nil
}
