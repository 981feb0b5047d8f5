package diary

import (
	"strings"
	"time"
)

// Record is a parsed diary day.
type Record struct {
	Date        time.Time
	Path        string
	Title       string
	Todos       []string
	Logs        []string
	Thoughts    []string
	Attachments string
	Feedback    string
}

// HasFeedback reports whether the diary already carries generated feedback.
func (r Record) HasFeedback() bool {
	return strings.TrimSpace(r.Feedback) != ""
}

// Empty reports whether the record holds no entries in any prompt section.
func (r Record) Empty() bool {
	return len(r.Todos) == 0 && len(r.Logs) == 0 && len(r.Thoughts) == 0
}

// Format renders the record for inclusion in a prompt. Attachments and
// feedback are never included.
func (r Record) Format() string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(r.Date.Format("2006年01月02日"))
	if r.Title != "" {
		b.WriteString(" ")
		b.WriteString(r.Title)
	}
	b.WriteString("\n\n")
	writeSection(&b, "待办事项", r.Todos)
	writeSection(&b, "记录", r.Logs)
	writeSection(&b, "想法", r.Thoughts)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSection(b *strings.Builder, title string, items []string) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString("无\n\n")
		return
	}
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
