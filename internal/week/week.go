// Package week maps calendar dates onto ISO-8601 weeks.
//
// A Key identifies one Monday-to-Sunday span. Every date belongs to exactly one
// Key, and a Key becomes eligible for summarization only once its Sunday lies
// strictly before the reference date. Keys also own the summary artifact file
// naming so that existence checks and writes agree on one path.
package week

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Key is an ISO (year, week-number) pair.
type Key struct {
	Year int
	Week int
}

// KeyFor returns the ISO week containing date.
func KeyFor(date time.Time) Key {
	year, wk := date.ISOWeek()
	return Key{Year: year, Week: wk}
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Monday returns the first day of the week in UTC.
func (k Key) Monday() time.Time {
	// January 4th is always in ISO week 1.
	jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	week1Monday := jan4.AddDate(0, 0, -offset)
	return week1Monday.AddDate(0, 0, (k.Week-1)*7)
}

// Sunday returns the last day of the week in UTC.
func (k Key) Sunday() time.Time {
	return k.Monday().AddDate(0, 0, 6)
}

// Dates lists the seven days of the week, Monday first.
func (k Key) Dates() []time.Time {
	monday := k.Monday()
	out := make([]time.Time, 7)
	for i := range out {
		out[i] = monday.AddDate(0, 0, i)
	}
	return out
}

// Contains reports whether date falls within [Monday, Sunday].
func (k Key) Contains(date time.Time) bool {
	return KeyFor(date) == k
}

// Complete reports whether the week's Sunday is strictly before asOf's calendar date.
func (k Key) Complete(asOf time.Time) bool {
	y, m, d := asOf.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return k.Sunday().Before(today)
}

// Previous returns the week immediately before k.
func (k Key) Previous() Key {
	return KeyFor(k.Monday().AddDate(0, 0, -7))
}

// Next returns the week immediately after k.
func (k Key) Next() Key {
	return KeyFor(k.Monday().AddDate(0, 0, 7))
}

// Before orders keys chronologically.
func (k Key) Before(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Week < other.Week
}

// String renders the key as 2024-W19.
func (k Key) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// Range renders the Monday..Sunday span.
func (k Key) Range() string {
	return k.Monday().Format(dateLayout) + ".." + k.Sunday().Format(dateLayout)
}

// Filename returns the summary artifact name, e.g. 2025_W01_20241230-20250105.md.
func (k Key) Filename() string {
	return fmt.Sprintf("%04d_W%02d_%s-%s.md", k.Year, k.Week,
		k.Monday().Format("20060102"), k.Sunday().Format("20060102"))
}

var filenamePattern = regexp.MustCompile(`^(\d{4})_W(\d{2})_(\d{8})-(\d{8})\.md$`)

// ParseFilename reverses Filename. Names that do not match, or whose date range
// disagrees with the week number, are rejected.
func ParseFilename(name string) (Key, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return Key{}, false
	}
	year, _ := strconv.Atoi(m[1])
	wk, _ := strconv.Atoi(m[2])
	if wk < 1 || wk > 53 {
		return Key{}, false
	}
	key := Key{Year: year, Week: wk}
	if KeyFor(key.Monday()) != key || key.Filename() != name {
		return Key{}, false
	}
	return key, true
}

// LastComplete returns the most recent week that is complete as of asOf.
func LastComplete(asOf time.Time) Key {
	y, m, d := asOf.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return KeyFor(today).Previous()
}
