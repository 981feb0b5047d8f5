package diary

import (
	"regexp"
	"strings"
	"time"
)

var (
	checkboxPrefix = regexp.MustCompile(`^\[\s*[xX]?\s*\]`)
	checkedPrefix  = regexp.MustCompile(`^\[\s*[xX]\s*\]`)
	completedOn    = regexp.MustCompile(`✅\s*(\d{4}-\d{2}-\d{2})`)
)

// RecentCompletionWindow bounds how long a completed todo stays in the digest.
const RecentCompletionWindow = 7 * 24 * time.Hour

// TodoGroup holds the digest entries that came from one diary day.
type TodoGroup struct {
	Date  time.Time
	Items []string
}

// OpenTodos filters todos across records, keeping items that are still open
// and items completed (marked "✅ YYYY-MM-DD") within a week of asOf.
// Completed items without a completion date are dropped, as are empty
// checkboxes.
func OpenTodos(records []Record, asOf time.Time) []TodoGroup {
	ref := day(asOf)
	var groups []TodoGroup
	for _, rec := range records {
		var kept []string
		for _, todo := range rec.Todos {
			if keepTodo(todo, ref) {
				kept = append(kept, todo)
			}
		}
		if len(kept) > 0 {
			groups = append(groups, TodoGroup{Date: rec.Date, Items: kept})
		}
	}
	return groups
}

func keepTodo(todo string, ref time.Time) bool {
	if strings.TrimSpace(checkboxPrefix.ReplaceAllString(todo, "")) == "" {
		return false
	}
	if !checkedPrefix.MatchString(todo) {
		return true
	}
	match := completedOn.FindStringSubmatch(todo)
	if match == nil {
		return false
	}
	done, err := time.Parse(dateLayout, match[1])
	if err != nil {
		return false
	}
	return ref.Sub(done) <= RecentCompletionWindow
}
