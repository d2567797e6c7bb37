// Package render turns model-generated markdown into email-ready HTML.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// parser is shared; goldmark parsers are safe for concurrent use.
var parser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// inlineBulletRe matches a line carrying text followed by an inline
// "- item" list, the shape models emit when they ignore list formatting.
var inlineBulletRe = regexp.MustCompile(`\w.*-\s+\w`)

// bulletSplitRe splits an inline list into intro and items.
var bulletSplitRe = regexp.MustCompile(`\s*-\s+`)

// HTML renders a markdown email body as a styled HTML fragment. Code
// fence wrappers are stripped, inline bullet runs are normalized to
// markdown lists, and the result is wrapped in the email container div.
// On a markdown failure the cleaned text is returned as-is.
func HTML(raw string) string {
	cleaned := StripFence(raw)
	cleaned = NormalizeBullets(cleaned)

	var buf bytes.Buffer
	if err := parser.Convert([]byte(cleaned), &buf); err != nil {
		return cleaned
	}

	return "<div style=\"font-family: Arial, sans-serif; line-height: 1.6; color: #333;\">\n" +
		strings.TrimSpace(buf.String()) +
		"\n</div>"
}

// StripFence removes a surrounding markdown code fence (```html ... ```
// or ``` ... ```) that models sometimes wrap their output in.
func StripFence(text string) string {
	cleaned := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(cleaned, "```html") && strings.HasSuffix(cleaned, "```"):
		cleaned = cleaned[len("```html") : len(cleaned)-3]
	case strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") && len(cleaned) > 6:
		cleaned = cleaned[3 : len(cleaned)-3]
	}
	return strings.TrimSpace(cleaned)
}

// NormalizeBullets rewrites lines that carry an inline "- item - item"
// list into an intro line followed by one markdown bullet per item.
func NormalizeBullets(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if !inlineBulletRe.MatchString(line) || !strings.Contains(line, "- ") {
			out = append(out, line)
			continue
		}
		parts := bulletSplitRe.Split(line, -1)
		intro := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[0]), ":"))
		if intro != "" {
			out = append(out, intro)
		}
		for _, item := range parts[1:] {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, "- "+item)
			}
		}
	}
	return strings.Join(out, "\n")
}
