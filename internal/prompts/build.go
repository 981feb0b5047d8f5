package prompts

import (
	"fmt"
	"strings"

	"diaryassistant/internal/artifact"
	"diaryassistant/internal/diary"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/week"
)

const (
	dateLayout      = "2006年01月02日"
	shortDateLayout = "01月02日"
)

var separator = strings.Repeat("=", 50)

const todoLegend = `仅包含所有未完成和近一周完成的待办事项。
### 待办标记说明
- 三级标题：待办创建日期
- 优先级：🔺(最高) > ⏫(高) > 🔼(中) > (无标记)(普通) > 🔽(低) > ⏬(最低)
- 📅：截止日期
- ✅：完成日期
- ❌：放弃/失败日期`

// Daily is the input of one daily evaluation.
type Daily struct {
	Target    diary.Record
	Context   []diary.Record
	Summaries []artifact.Summary
	Todos     []diary.TodoGroup
	// Profile is the rendered user profile. Empty leaves the profile and the
	// memory update instruction out of the system prompt.
	Profile string
}

// DailyMessages builds the evaluation conversation: the system prompt, the
// optional weekly-summary and todo-digest messages, one message per context
// day in chronological order, and finally the target day.
func DailyMessages(in Daily) []llm.Message {
	messages := make([]llm.Message, 0, len(in.Context)+4)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: DailySystem(in.Profile)})
	if text := HistoricalSummaries(in.Summaries); text != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	}
	if text := TodoDigest(in.Todos); text != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	}
	for _, rec := range in.Context {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: ContextDay(rec)})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: TargetDay(in.Target)})
	return messages
}

// DailySystem returns the evaluation system prompt, extended with the user
// profile and the memory update instruction when profile is not empty.
func DailySystem(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return DailyEvaluationSystem
	}
	return DailyEvaluationSystem + "\n\n## 用户画像 (长期记忆)\n" + profile + "\n\n" + MemoryUpdateInstruction
}

// ContextDay renders a preceding day.
func ContextDay(rec diary.Record) string {
	return "以下是 " + rec.Date.Format(dateLayout) + " 的日记：\n\n" + rec.Format()
}

// TargetDay renders the day being evaluated, followed by the instruction.
func TargetDay(rec diary.Record) string {
	return fmt.Sprintf("今天是 %s。\n\n%s\n请为今天的日记写一段评价和建议。", rec.Date.Format(dateLayout), rec.Format())
}

// HistoricalSummaries renders earlier weekly summaries, oldest first. It
// returns an empty string when there are none.
func HistoricalSummaries(summaries []artifact.Summary) string {
	if len(summaries) == 0 {
		return ""
	}
	parts := []string{"\n## 历史周总结\n"}
	for _, s := range summaries {
		header := fmt.Sprintf("### %d年第%d周 (%s-%s)", s.Key.Year, s.Key.Week,
			s.Key.Monday().Format(shortDateLayout), s.Key.Sunday().Format(shortDateLayout))
		parts = append(parts, header, "", strings.TrimSpace(s.Content), "", separator, "")
	}
	return strings.Join(parts, "\n")
}

// TodoDigest renders open and recently completed todos grouped by the day
// they were written. It returns an empty string when there are none.
func TodoDigest(groups []diary.TodoGroup) string {
	parts := make([]string, 0, len(groups)*3)
	for _, group := range groups {
		if len(group.Items) == 0 {
			continue
		}
		parts = append(parts, "### "+group.Date.Format("2006-01-02"))
		for _, item := range group.Items {
			parts = append(parts, "- "+item)
		}
		parts = append(parts, "")
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n## 📋 待办事项汇总\n" + todoLegend + "\n\n" + strings.Join(parts, "\n")
}

// WeekContent renders every diary of a week under a header with the range.
func WeekContent(key week.Key, records []diary.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %d年第%d周日记\n", key.Year, key.Week)
	fmt.Fprintf(&b, "**时间范围**: %s 至 %s\n\n", key.Monday().Format(dateLayout), key.Sunday().Format(dateLayout))
	for _, rec := range records {
		b.WriteString(rec.Format())
		b.WriteString("\n\n")
		b.WriteString(separator)
		b.WriteString("\n\n")
	}
	return b.String()
}

// WeeklyMessages builds the summary conversation for one week.
func WeeklyMessages(key week.Key, records []diary.Record) []llm.Message {
	user := fmt.Sprintf("时间范围：%s 至 %s\n日记数量：%d 篇\n\n%s\n\n请生成周总结。",
		key.Monday().Format(dateLayout), key.Sunday().Format(dateLayout), len(records), WeekContent(key, records))
	return []llm.Message{
		{Role: llm.RoleSystem, Content: WeeklySummarySystem},
		{Role: llm.RoleUser, Content: user},
	}
}
