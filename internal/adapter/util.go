package adapter

import (
	"html"
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded ad description to plain text.
// It first unescapes HTML entities (a no-op on already-plain text), strips
// all tags, then collapses whitespace. Both the classifier prompt and the
// store's text search want plain text.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}
