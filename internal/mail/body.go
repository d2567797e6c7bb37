package mail

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// quoteSeparator is the underscore rule some clients insert above quoted
// history.
const quoteSeparator = "________________________________"

// quotePrefixes mark the start of a quoted reply block.
var quotePrefixes = []string{"From:", "Sent:", "To:", "Subject:", ">"}

// ExtractBody pulls the reply text out of an envelope. Preference order:
// a text/plain MIME part, then a text/html part converted to text, then a
// single-part body, then the provider snippet. Quoted history is cut at
// the first line that looks like a quote marker — a heuristic that misses
// top-posted replies without markers.
func ExtractBody(env *Envelope) string {
	if env == nil {
		return ""
	}

	if p := findPart(env.Payload, "text/plain"); p != nil {
		if text, ok := decodeData(p.Body.Data); ok {
			return StripQuoted(text)
		}
	}
	if p := findPart(env.Payload, "text/html"); p != nil {
		if html, ok := decodeData(p.Body.Data); ok {
			if text, ok := htmlToText(html); ok {
				return StripQuoted(text)
			}
		}
	}

	if env.Payload != nil && env.Payload.Body != nil {
		if text, ok := decodeData(env.Payload.Body.Data); ok {
			switch env.Payload.MimeType {
			case "text/plain":
				return StripQuoted(text)
			case "text/html":
				if converted, ok := htmlToText(text); ok {
					return StripQuoted(converted)
				}
			default:
				return StripQuoted(text)
			}
		}
	}

	return env.Snippet
}

// StripQuoted truncates text at the first line matching a quote marker and
// trims surrounding whitespace.
func StripQuoted(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if isQuoteMarker(line) {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// isQuoteMarker reports whether a line begins quoted reply history.
func isQuoteMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range quotePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return strings.Contains(line, quoteSeparator)
}

// htmlToText converts an HTML body to readable text.
func htmlToText(html string) (string, bool) {
	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(html)
	if err != nil {
		return "", false
	}
	return text, true
}
