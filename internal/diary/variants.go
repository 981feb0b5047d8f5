package diary

import (
	"strings"

	"golang.org/x/text/cases"
)

// Section identifies a recognized diary heading.
type Section int

const (
	SectionNone Section = iota
	SectionTodo
	SectionLog
	SectionThoughts
	SectionAttachments
	SectionFeedback
)

func (s Section) String() string {
	switch s {
	case SectionTodo:
		return "todo"
	case SectionLog:
		return "log"
	case SectionThoughts:
		return "thoughts"
	case SectionAttachments:
		return "attachments"
	case SectionFeedback:
		return "feedback"
	default:
		return "none"
	}
}

// FeedbackHeading is the heading written above generated feedback.
const FeedbackHeading = "AI 说"

// Variants lists the heading texts recognized for each section.
type Variants struct {
	Todo        []string
	Log         []string
	Thoughts    []string
	Attachments []string
	Feedback    []string
}

// DefaultVariants returns the heading keywords used by the diary template.
func DefaultVariants() Variants {
	return Variants{
		Todo:        []string{"今日待办", "待办", "todo", "todos"},
		Log:         []string{"随手记录", "记录", "record", "日志", "流水", "log"},
		Thoughts:    []string{"心情", "心情和想法", "想法", "thought", "thoughts", "感悟", "思考"},
		Attachments: []string{"附件", "附件 / 链接", "附件和链接", "attachments"},
		Feedback:    []string{FeedbackHeading, "AI说", "AI评价", "AI建议"},
	}
}

// Casers carry state, so each call gets its own.
func fold(value string) string {
	return cases.Fold().String(strings.Join(strings.Fields(value), " "))
}

// Classify maps heading text to a section. Matching is exact after trimming,
// whitespace collapsing and Unicode case folding.
func (v Variants) Classify(heading string) Section {
	key := fold(heading)
	if key == "" {
		return SectionNone
	}
	groups := []struct {
		section Section
		names   []string
	}{
		{SectionTodo, v.Todo},
		{SectionLog, v.Log},
		{SectionThoughts, v.Thoughts},
		{SectionAttachments, v.Attachments},
		{SectionFeedback, v.Feedback},
	}
	for _, group := range groups {
		for _, name := range group.names {
			if fold(name) == key {
				return group.section
			}
		}
	}
	return SectionNone
}
