package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"diaryassistant/internal/config"
	"diaryassistant/internal/fileutil"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for cfg. The API key check only runs
// when requireKey is set; read-only commands work without one.
func RunAll(_ context.Context, cfg *config.Config, requireKey bool) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for i, dir := range cfg.Paths.DiaryDirs {
		results = append(results, CheckDiaryDir(fmt.Sprintf("Diary directory %d", i+1), dir))
	}
	results = append(results,
		CheckDirectoryAccess("Summary directory", cfg.Paths.SummaryDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Diagnostics directory", cfg.Paths.DiagnosticsDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	)
	if requireKey {
		results = append(results, CheckAPIKey(cfg.LLM.APIKey))
	}
	return results
}

// Failed joins the details of every failed result, or returns nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %w", errors.Join(errs...))
}

// CheckDiaryDir verifies a diary directory can be listed. A missing directory
// passes with a note since diaries may simply not exist yet.
func CheckDiaryDir(name, path string) Result {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: path + " (not created yet)"}
	}
	if err := fileutil.CheckReadableDir(path); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that path exists (creating it if needed) and
// is writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", path)}
	}
	if err := fileutil.CheckWritableDir(path); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckAPIKey verifies that generation credentials are configured.
func CheckAPIKey(key string) Result {
	const name = "API key"
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "missing; set llm.api_key or DEEPSEEK_API_KEY"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
