package diary

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
	"diaryassistant/internal/textutil"
)

const dateLayout = "2006-01-02"

// Reader locates and parses diary files across one or more directories.
// Earlier directories win when the same date exists in several.
type Reader struct {
	dirs     []string
	variants Variants
}

// NewReader constructs a reader over dirs using the given heading variants.
func NewReader(dirs []string, variants Variants) *Reader {
	cleaned := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			cleaned = append(cleaned, dir)
		}
	}
	return &Reader{dirs: cleaned, variants: variants}
}

// Dirs returns the configured directories.
func (r *Reader) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Read returns the record for date. A missing diary is reported with ok=false
// and a nil error.
func (r *Reader) Read(date time.Time) (Record, bool, error) {
	path, ok, err := r.locate(date)
	if err != nil || !ok {
		return Record{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("read diary %s: %w", path, err)
	}
	rec := Parse(day(date), data, r.variants)
	rec.Path = path
	return rec, true, nil
}

// Dates lists every finished diary date across all directories, ascending.
func (r *Reader) Dates() ([]time.Time, error) {
	seen := make(map[string]time.Time)
	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list diary dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			date, ok := parseName(entry.Name())
			if !ok {
				continue
			}
			seen[date.Format(dateLayout)] = date
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for _, date := range seen {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// WriteFeedback replaces or appends the feedback section of the diary for
// date and rewrites the file atomically.
func (r *Reader) WriteFeedback(date time.Time, feedback string) (string, error) {
	path, ok, err := r.locate(date)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("diary for %s not found", date.Format(dateLayout))
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat diary: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read diary: %w", err)
	}
	updated := ReplaceFeedback(data, feedback, r.variants)
	if err := fileutil.WriteFileAtomic(path, updated, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("write diary feedback: %w", err)
	}
	return path, nil
}

// ClearResult summarizes a ClearFeedback pass.
type ClearResult struct {
	BackupDir string
	Scanned   int
	Cleared   int
}

// ClearFeedback backs every diary up into backupDir and then strips its
// feedback section. Files without feedback are backed up but left untouched.
func (r *Reader) ClearFeedback(backupDir string) (ClearResult, error) {
	result := ClearResult{BackupDir: backupDir}
	dates, err := r.Dates()
	if err != nil {
		return result, err
	}
	for _, date := range dates {
		path, ok, err := r.locate(date)
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}
		result.Scanned++

		target := filepath.Join(backupDir, backupName(r.dirs, path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return result, fmt.Errorf("create backup dir: %w", err)
		}
		if err := fileutil.CopyFileVerified(path, target); err != nil {
			return result, fmt.Errorf("back up %s: %w", path, err)
		}

		info, err := os.Stat(path)
		if err != nil {
			return result, fmt.Errorf("stat diary: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return result, fmt.Errorf("read diary: %w", err)
		}
		stripped, found := StripFeedback(data, r.variants)
		if !found {
			continue
		}
		if err := fileutil.WriteFileAtomic(path, stripped, info.Mode().Perm()); err != nil {
			return result, fmt.Errorf("rewrite %s: %w", path, err)
		}
		result.Cleared++
	}
	return result, nil
}

func (r *Reader) locate(date time.Time) (string, bool, error) {
	name := day(date).Format(dateLayout) + ".md"
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", false, fmt.Errorf("stat diary %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		return path, true, nil
	}
	return "", false, nil
}

// backupName keeps files from different diary directories apart.
func backupName(dirs []string, path string) string {
	for i, dir := range dirs {
		if filepath.Dir(path) == filepath.Clean(dir) {
			if len(dirs) == 1 {
				return filepath.Base(path)
			}
			return filepath.Join(fmt.Sprintf("%d_%s", i, textutil.FileToken(filepath.Base(dir), "diary")), filepath.Base(path))
		}
	}
	return filepath.Base(path)
}

// parseName accepts YYYY-MM-DD.md. Draft files (YYYY-MM-DDx.md) do not parse.
func parseName(name string) (time.Time, bool) {
	stem, ok := strings.CutSuffix(name, ".md")
	if !ok || len(stem) != len(dateLayout) {
		return time.Time{}, false
	}
	date, err := time.Parse(dateLayout, stem)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
