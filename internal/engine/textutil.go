package engine

import (
	"html"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// EllipsisMarker is appended to a transcript cut at the character budget.
const EllipsisMarker = "..."

// previewLimit caps upstream bodies and process output written to logs.
const previewLimit = 300

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips HTML tags, unescapes entities and trims whitespace.
func CleanHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(html.UnescapeString(s)))
}

// TruncateTranscript head-truncates s to limit characters and appends
// EllipsisMarker when something was cut. limit <= 0 disables truncation.
func TruncateTranscript(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + EllipsisMarker
}

// Preview shortens s for log lines and error details. Safe for UTF-8.
func Preview(s string) string {
	return strutil.TruncateWith(strings.TrimSpace(s), previewLimit, "...")
}
