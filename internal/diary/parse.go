package diary

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

var checkboxLine = regexp.MustCompile(`^\[\s*[xX]?\s*\]\s*\S`)

// headingSpan locates one top-level heading in the source.
type headingSpan struct {
	section   Section
	text      string
	lineStart int
	bodyStart int
}

// Parse builds a record from diary markdown. A leading heading that is not a
// recognized section becomes the title.
func Parse(date time.Time, source []byte, v Variants) Record {
	rec := Record{Date: date}
	doc := markdown.Parser().Parse(text.NewReader(source))

	spans := make([]headingSpan, 0, 8)
	current := SectionNone
	pastAttachments := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			span, ok := spanOf(node, source, v)
			if !ok {
				current = SectionNone
				continue
			}
			if n == doc.FirstChild() && span.section == SectionNone {
				rec.Title = span.text
			}
			span, pastAttachments = demote(span, pastAttachments)
			spans = append(spans, span)
			current = span.section
		case *ast.List:
			rec.appendItems(current, listItems(node, source, nil))
		case *ast.Paragraph:
			rec.appendItems(current, checkboxLines(node, source))
		}
	}

	rec.Todos = dedupe(rec.Todos)
	rec.Logs = dedupe(rec.Logs)
	rec.Thoughts = dedupe(rec.Thoughts)
	if start, end, ok := sectionRange(spans, SectionAttachments, len(source)); ok {
		rec.Attachments = strings.TrimSpace(string(source[start:end]))
	}
	if start, end, ok := sectionRange(spans, SectionFeedback, len(source)); ok {
		rec.Feedback = strings.TrimSpace(string(source[start:end]))
	}
	if rec.Title == "" {
		rec.Title = "日记 " + date.Format("2006-01-02")
	}
	return rec
}

func (r *Record) appendItems(section Section, items []string) {
	switch section {
	case SectionTodo:
		r.Todos = append(r.Todos, items...)
	case SectionLog:
		r.Logs = append(r.Logs, items...)
	case SectionThoughts:
		r.Thoughts = append(r.Thoughts, items...)
	}
}

func spanOf(h *ast.Heading, source []byte, v Variants) (headingSpan, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return headingSpan{}, false
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(seg.Value(source))))
	}
	heading := strings.TrimSpace(strings.Join(parts, " "))

	lineStart := bytes.LastIndexByte(source[:first.Start], '\n') + 1
	bodyStart := len(source)
	if idx := bytes.IndexByte(source[last.Stop:], '\n'); idx >= 0 {
		bodyStart = last.Stop + idx + 1
	}
	return headingSpan{
		section:   v.Classify(heading),
		text:      heading,
		lineStart: lineStart,
		bodyStart: bodyStart,
	}, true
}

// sectionRange returns the body of the first heading matching section. The
// body runs until the next recognized heading, so free-form headings inside
// generated feedback stay part of it.
func sectionRange(spans []headingSpan, section Section, size int) (int, int, bool) {
	for i, span := range spans {
		if span.section != section {
			continue
		}
		end := size
		for _, next := range spans[i+1:] {
			if next.section != SectionNone && next.section != section {
				end = next.lineStart
				break
			}
		}
		if end < span.bodyStart {
			return span.bodyStart, span.bodyStart, true
		}
		return span.bodyStart, end, true
	}
	return 0, 0, false
}

func listItems(list *ast.List, source []byte, out []string) []string {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		taken := false
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if nested, ok := child.(*ast.List); ok {
				out = listItems(nested, source, out)
				continue
			}
			if taken || child.Type() != ast.TypeBlock {
				continue
			}
			if value := joinLines(child, source); value != "" {
				out = append(out, value)
				taken = true
			}
		}
	}
	return out
}

func checkboxLines(p *ast.Paragraph, source []byte) []string {
	lines := p.Lines()
	var out []string
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimSpace(string(seg.Value(source)))
		if checkboxLine.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

func joinLines(n ast.Node, source []byte) string {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if line := strings.TrimSpace(string(seg.Value(source))); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func scanSpans(source []byte, v Variants) []headingSpan {
	doc := markdown.Parser().Parse(text.NewReader(source))
	var spans []headingSpan
	pastAttachments := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if span, ok := spanOf(h, source, v); ok {
			span, pastAttachments = demote(span, pastAttachments)
			spans = append(spans, span)
		}
	}
	return spans
}

// demote folds headings that follow the attachments heading into the
// attachments block until a feedback heading starts.
func demote(span headingSpan, pastAttachments bool) (headingSpan, bool) {
	switch {
	case span.section == SectionAttachments:
		return span, true
	case span.section == SectionFeedback:
		return span, false
	case pastAttachments:
		span.section = SectionAttachments
	}
	return span, pastAttachments
}
