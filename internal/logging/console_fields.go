package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

// infoHighlightKeys print first, in this order, on info-level console lines.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"outcome",
	FieldAttempt,
	FieldMaxAttempts,
	FieldErrorClass,
	"status_code",
	"error",
	FieldErrorHint,
	FieldImpact,
	FieldDiagnosticsPath,
	"elapsed",
	"backoff",
	"diary_count",
	"prompt_tokens",
	"completion_tokens",
	"summary_path",
	"diary_path",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	hidden := 0

	consider := func(idx int) {
		attr := attrs[idx]
		used[idx] = true
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKey(attr.key, attr.value)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				consider(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			consider(idx)
		}
	}
	return result, hidden
}

// formatValueForKey applies smart formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" {
		value = truncateErrorValue(value)
	}
	return value
}

func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "backoff"
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxRunes = 200
	if runes := []rune(value); len(runes) > maxRunes {
		value = string(runes[:maxRunes]) + "…"
	}
	return value
}

// skipInfoKey reports keys already rendered in the header line.
func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldTask, FieldDate, FieldWeek:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "":
		return true
	case FieldDiagnosticsPath, "summary_path", "diary_path":
		return false
	case FieldRunID, FieldRequestID, "prompt_chars", "model", "finish_reason", "response_id":
		return true
	}
	return strings.HasSuffix(key, "_id") || strings.Contains(key, "_dir")
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error", FieldErrorHint, FieldDiagnosticsPath:
		return false
	}
	return len(value) > 120
}

// alwaysShowLabel marks fields that repeat on every line even when unchanged.
func alwaysShowLabel(label string) bool {
	switch label {
	case "Attempt", "Outcome", "Error", "Event":
		return true
	}
	return false
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldErrorClass:
		return "Class"
	case FieldMaxAttempts:
		return "Budget"
	case FieldDiagnosticsPath:
		return "Diagnostics"
	case "status_code":
		return "HTTP Status"
	case "diary_count":
		return "Diaries"
	case "prompt_tokens":
		return "Prompt Tokens"
	case "completion_tokens":
		return "Output Tokens"
	case "summary_path":
		return "Summary"
	case "diary_path":
		return "Diary"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

// infoSummaryKey scopes repeated-field suppression to one request, week or day.
func infoSummaryKey(head header, attrs []kv) string {
	for _, key := range []string{FieldRequestID, FieldWeek, FieldDate} {
		if value := attrValue(attrs, key); value != "" {
			return key + ":" + value
		}
	}
	return head.component
}

func attrValue(attrs []kv, key string) string {
	for _, kv := range attrs {
		if kv.key == key {
			return attrString(kv.value)
		}
	}
	return ""
}
