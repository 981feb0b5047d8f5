// Package artifact persists generated output: weekly summary files and the
// feedback section written back into diary files.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"diaryassistant/internal/fileutil"
	"diaryassistant/internal/week"
)

const headerSeparator = "\n---\n\n"

// FeedbackWriter stores feedback for a diary day and returns the file written.
type FeedbackWriter interface {
	WriteFeedback(date time.Time, text string) (string, error)
}

// Meta describes a summary at write time.
type Meta struct {
	Generated  time.Time
	DiaryCount int
}

// Summary is a stored weekly summary.
type Summary struct {
	Key     week.Key
	Path    string
	Content string
}

// Store manages the summary directory and delegates feedback writes.
type Store struct {
	summaryDir string
	feedback   FeedbackWriter
}

// NewStore constructs a store rooted at summaryDir.
func NewStore(summaryDir string, feedback FeedbackWriter) *Store {
	return &Store{summaryDir: summaryDir, feedback: feedback}
}

// SummaryPath returns where the summary for key lives.
func (s *Store) SummaryPath(key week.Key) string {
	return filepath.Join(s.summaryDir, key.Filename())
}

// HasSummary reports whether a summary file exists for key. Existence is the
// only marker of completion.
func (s *Store) HasSummary(key week.Key) (bool, error) {
	info, err := os.Stat(s.SummaryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat summary %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

// WriteSummary writes the summary for key atomically with a metadata header.
func (s *Store) WriteSummary(key week.Key, text string, meta Meta) (string, error) {
	path := s.SummaryPath(key)
	doc := FormatHeader(key, meta) + strings.TrimSpace(text) + "\n"
	if err := fileutil.WriteFileAtomic(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write summary %s: %w", key, err)
	}
	return path, nil
}

// ReadSummary returns the stored summary for key, with ok=false when absent.
func (s *Store) ReadSummary(key week.Key) (Summary, bool, error) {
	path := s.SummaryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Summary{}, false, nil
		}
		return Summary{}, false, fmt.Errorf("read summary %s: %w", key, err)
	}
	return Summary{Key: key, Path: path, Content: body(string(data))}, true, nil
}

// Summaries lists every stored summary, oldest week first. Files that do not
// follow the summary naming scheme are ignored.
func (s *Store) Summaries() ([]Summary, error) {
	entries, err := os.ReadDir(s.summaryDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := week.ParseFilename(entry.Name())
		if !ok {
			continue
		}
		summary, found, err := s.ReadSummary(key)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, summary)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Before(out[j].Key) })
	return out, nil
}

// Recent returns up to limit summaries for weeks strictly before key, oldest
// first.
func (s *Store) Recent(key week.Key, limit int) ([]Summary, error) {
	if limit <= 0 {
		return nil, nil
	}
	all, err := s.Summaries()
	if err != nil {
		return nil, err
	}
	var earlier []Summary
	for _, summary := range all {
		if summary.Key.Before(key) {
			earlier = append(earlier, summary)
		}
	}
	if len(earlier) > limit {
		earlier = earlier[len(earlier)-limit:]
	}
	return earlier, nil
}

// WriteFeedback stores feedback for date through the configured writer.
func (s *Store) WriteFeedback(date time.Time, text string) (string, error) {
	if s.feedback == nil {
		return "", errors.New("feedback writer not configured")
	}
	return s.feedback.WriteFeedback(date, text)
}

// FormatHeader renders the metadata block placed above a weekly summary.
func FormatHeader(key week.Key, meta Meta) string {
	const layout = "2006年01月02日"
	var b strings.Builder
	fmt.Fprintf(&b, "# %d年第%d周总结\n", key.Year, key.Week)
	fmt.Fprintf(&b, "**时间范围**: %s 至 %s\n", key.Monday().Format(layout), key.Sunday().Format(layout))
	fmt.Fprintf(&b, "**生成时间**: %s\n", meta.Generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**日记数量**: %d 篇\n", meta.DiaryCount)
	b.WriteString(headerSeparator)
	return b.String()
}

func body(doc string) string {
	if strings.HasPrefix(doc, "# ") {
		if idx := strings.Index(doc, headerSeparator); idx >= 0 {
			doc = doc[idx+len(headerSeparator):]
		}
	}
	return strings.TrimSpace(doc)
}
