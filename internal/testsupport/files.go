package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteDiary writes a diary file named after date into dir and returns its path.
func WriteDiary(t testing.TB, dir, date, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", dir, err)
	}
	path := filepath.Join(dir, date+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// DiaryBody renders a minimal diary with one log entry per line.
func DiaryBody(title string, logs ...string) string {
	body := "# " + title + "\n## 记录\n"
	for _, line := range logs {
		body += "- " + line + "\n"
	}
	return body
}

// ReadFile returns the file contents or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
