package textutil

import "strings"

// Truncate shortens text to at most limit runes, appending an ellipsis when
// anything was cut. A non-positive limit returns text unchanged.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimRight(string(runes[:limit]), " \t\r\n") + "..."
}

// Snippet collapses whitespace and truncates text for single-line log fields.
func Snippet(text string, limit int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return "<empty>"
	}
	return Truncate(clean, limit)
}
