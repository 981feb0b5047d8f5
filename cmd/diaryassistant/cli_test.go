package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"diaryassistant/internal/config"
	"diaryassistant/internal/testsupport"
	"diaryassistant/internal/textutil"
)

func TestMain(m *testing.M) {
	newTokenizer = func() textutil.TokenCounter { return textutil.HeuristicTokenizer() }
	os.Exit(m.Run())
}

type fakeAPI struct {
	server *httptest.Server
	calls  atomic.Int32
	weekly atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		content := "今天的反馈\n\n```json\n{\"memory_updates\": {\"add\": [\"2024-05 在写代码\"]}}\n```"
		if n := len(body.Messages); n > 0 && strings.HasSuffix(body.Messages[n-1].Content, "请生成周总结。") {
			api.weekly.Add(1)
			content = "本周概览"
		}
		payload := map[string]any{
			"id":    "cmpl-1",
			"model": "deepseek-reasoner",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(api.server.Close)
	return api
}

type cliEnv struct {
	cfg        *config.Config
	configPath string
	diaryDir   string
}

func setupCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{cfg: cfg, configPath: configPath, diaryDir: cfg.Paths.DiaryDirs[0]}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeWeek19(t *testing.T, dir string) {
	t.Helper()
	for _, date := range []string{"2024-05-06", "2024-05-07", "2024-05-08", "2024-05-09", "2024-05-10", "2024-05-11", "2024-05-12"} {
		testsupport.WriteDiary(t, dir, date, testsupport.DiaryBody(date, "记录 "+date))
	}
}

func TestRunEvaluatesDayAndSummarizesWeek(t *testing.T) {
	api := newFakeAPI(t)
	env := setupCLIEnv(t, testsupport.WithBaseURL(api.server.URL))
	writeWeek19(t, env.diaryDir)
	target := testsupport.WriteDiary(t, env.diaryDir, "2024-05-15", testsupport.DiaryBody("周三", "写代码"))

	out, err := env.run(t, "--date", "2024-05-15")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if api.calls.Load() != 2 || api.weekly.Load() != 1 {
		t.Fatalf("calls=%d weekly=%d", api.calls.Load(), api.weekly.Load())
	}
	if !strings.Contains(out, "Daily 2024-05-15: feedback written") || !strings.Contains(out, "今天的反馈") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "Weekly: 1 summarized") {
		t.Fatalf("unexpected weekly output:\n%s", out)
	}
	if diary := testsupport.ReadFile(t, target); !strings.Contains(diary, "## AI 说\n\n今天的反馈") || strings.Contains(diary, "memory_updates") {
		t.Fatalf("unexpected diary feedback:\n%s", diary)
	}
	if !strings.Contains(out, "Profile: 1 added, 0 removed, 0 updated") {
		t.Fatalf("profile update not reported:\n%s", out)
	}
	if facts := testsupport.ReadFile(t, env.cfg.ProfilePath()); !strings.Contains(facts, "2024-05 在写代码") {
		t.Fatalf("profile not saved:\n%s", facts)
	}
	summaryPath := filepath.Join(env.cfg.Paths.SummaryDir, "2024_W19_20240506-20240512.md")
	if doc := testsupport.ReadFile(t, summaryPath); !strings.Contains(doc, "本周概览") || !strings.Contains(doc, "**日记数量**: 7 篇") {
		t.Fatalf("unexpected summary:\n%s", doc)
	}
	transcripts, err := os.ReadDir(env.cfg.InteractionDir())
	if err != nil || len(transcripts) != 2 {
		t.Fatalf("expected two interaction transcripts, got %d (%v)", len(transcripts), err)
	}

	out, err = env.run(t, "run", "--date", "2024-05-15")
	if err != nil {
		t.Fatalf("second run: %v\n%s", err, out)
	}
	if api.calls.Load() != 2 {
		t.Fatalf("second run must not call the API, calls=%d", api.calls.Load())
	}
	if !strings.Contains(out, "feedback already present") || !strings.Contains(out, "0 summarized, 1 existing") {
		t.Fatalf("unexpected second run output:\n%s", out)
	}

	out, err = env.run(t, "status", "--date", "2024-05-15", "--weeks", "3")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Profile: 1 facts", "2024-W19", "2024-W20", "weekly_summary", "daily_evaluation", "success"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestDailyWithoutDiaryMakesNoCalls(t *testing.T) {
	api := newFakeAPI(t)
	env := setupCLIEnv(t, testsupport.WithBaseURL(api.server.URL))

	out, err := env.run(t, "daily", "--date", "2024-05-15")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if api.calls.Load() != 0 {
		t.Fatalf("expected no API calls, got %d", api.calls.Load())
	}
	if !strings.Contains(out, "no diary found") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunReportsAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	env := setupCLIEnv(t, testsupport.WithBaseURL(server.URL))
	path := testsupport.WriteDiary(t, env.diaryDir, "2024-05-15", testsupport.DiaryBody("周三", "写代码"))
	before := testsupport.ReadFile(t, path)

	_, err := env.run(t, "daily", "--date", "2024-05-15")
	if err == nil {
		t.Fatal("expected failure exit")
	}
	if after := testsupport.ReadFile(t, path); after != before {
		t.Fatalf("failed evaluation modified the diary:\n%s", after)
	}
	dumps, readErr := os.ReadDir(env.cfg.Paths.DiagnosticsDir)
	if readErr != nil || len(dumps) != 1 {
		t.Fatalf("expected one diagnostics file, got %d (%v)", len(dumps), readErr)
	}
}

func TestGenerationRequiresAPIKey(t *testing.T) {
	env := setupCLIEnv(t, testsupport.WithAPIKey(""))
	_, err := env.run(t, "weekly", "--date", "2024-05-15")
	if err == nil || !strings.Contains(err.Error(), "DEEPSEEK_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Warning:") || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}
}

func TestClearFeedback(t *testing.T) {
	env := setupCLIEnv(t)
	path := testsupport.WriteDiary(t, env.diaryDir, "2024-05-15", "## 记录\n- a\n\n## AI 说\n旧的\n")

	out, err := env.run(t, "clear-feedback")
	if err != nil {
		t.Fatalf("clear-feedback: %v", err)
	}
	if !strings.Contains(out, "Removed feedback from 1 diaries") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if got := testsupport.ReadFile(t, path); got != "## 记录\n- a\n" {
		t.Fatalf("feedback not stripped: %q", got)
	}
	backups, err := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "backup_*", "2024-05-15.md"))
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %v (%v)", backups, err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLIEnv(t, testsupport.WithAPIKey("sk-1234567890abcdef"))
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	if _, err := env.run(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-1234567890abcdef") || !strings.Contains(out, "sk-1****cdef") {
		t.Fatalf("api key not masked:\n%s", out)
	}
}

func TestInvalidDateFlag(t *testing.T) {
	env := setupCLIEnv(t)
	if _, err := env.run(t, "daily", "--date", "2024/05/15"); err == nil || !strings.Contains(err.Error(), "--date") {
		t.Fatalf("expected date error, got %v", err)
	}
}
