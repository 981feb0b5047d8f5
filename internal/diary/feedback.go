package diary

import "strings"

// feedbackBlock locates the first feedback heading. start is the beginning of
// the heading line and end the start of the next recognized section.
func feedbackBlock(source []byte, v Variants) (start, end int, ok bool) {
	spans := scanSpans(source, v)
	for _, span := range spans {
		if span.section != SectionFeedback {
			continue
		}
		_, end, _ = sectionRange(spans, SectionFeedback, len(source))
		return span.lineStart, end, true
	}
	return 0, 0, false
}

// ReplaceFeedback swaps the body of the existing feedback section for
// feedback, heading included, or appends a new section when there is none.
// Sections following the feedback block are kept.
func ReplaceFeedback(source []byte, feedback string, v Variants) []byte {
	block := "## " + FeedbackHeading + "\n\n" + strings.TrimSpace(feedback) + "\n"

	before, after := string(source), ""
	if start, end, ok := feedbackBlock(source, v); ok {
		before, after = string(source[:start]), string(source[end:])
	}
	before = strings.TrimRight(before, " \t\r\n")
	after = strings.TrimLeft(after, "\r\n")

	var b strings.Builder
	if before != "" {
		b.WriteString(before)
		b.WriteString("\n\n")
	}
	b.WriteString(block)
	if after != "" {
		b.WriteString("\n")
		b.WriteString(after)
	}
	return []byte(b.String())
}

// StripFeedback removes the feedback heading and everything after it. The
// source is returned unchanged with false when no feedback heading exists.
func StripFeedback(source []byte, v Variants) ([]byte, bool) {
	start, _, ok := feedbackBlock(source, v)
	if !ok {
		return source, false
	}
	kept := strings.TrimRight(string(source[:start]), " \t\r\n")
	if kept == "" {
		return []byte{}, true
	}
	return []byte(kept + "\n"), true
}
