package summary_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"diaryassistant/internal/artifact"
	"diaryassistant/internal/diary"
	"diaryassistant/internal/pipeline"
	"diaryassistant/internal/prompts"
	"diaryassistant/internal/services"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/summary"
	"diaryassistant/internal/week"
)

type fakeSender struct {
	calls  [][]llm.Message
	failOn map[int]bool
}

func (f *fakeSender) Send(_ context.Context, messages []llm.Message, _ pipeline.Options) pipeline.Result {
	f.calls = append(f.calls, messages)
	if f.failOn[len(f.calls)] {
		return pipeline.Result{Attempts: 3, Err: &llm.Error{Class: llm.ClassTransient, StatusCode: 503, Err: errors.New("unavailable")}}
	}
	return pipeline.Result{Attempts: 1, Content: "总结内容"}
}

type fixture struct {
	diaryDir   string
	summaryDir string
	reader     *diary.Reader
	store      *artifact.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := t.TempDir()
	f := fixture{
		diaryDir:   filepath.Join(base, "daily"),
		summaryDir: filepath.Join(base, "weekly"),
	}
	for _, dir := range []string{f.diaryDir, f.summaryDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	f.reader = diary.NewReader([]string{f.diaryDir}, diary.DefaultVariants())
	f.store = artifact.NewStore(f.summaryDir, f.reader)
	return f
}

func (f fixture) write(t *testing.T, dates ...string) {
	t.Helper()
	for _, date := range dates {
		content := "## 记录\n- " + date + " 的记录\n"
		if err := os.WriteFile(filepath.Join(f.diaryDir, date+".md"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func (f fixture) scheduler(sender summary.Sender, horizon int) *summary.Scheduler {
	return summary.New(f.reader, f.store, sender, summary.Config{HorizonWeeks: horizon, Temperature: 1.0}, nil)
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func statuses(report summary.Report) []string {
	out := make([]string, len(report.Weeks))
	for i, w := range report.Weeks {
		out[i] = w.Key.String() + "=" + w.Status.String()
	}
	return out
}

func TestRunPendingSummarizesCompleteWeek(t *testing.T) {
	f := newFixture(t)
	f.write(t, "2024-05-06", "2024-05-07", "2024-05-08", "2024-05-09", "2024-05-10", "2024-05-11", "2024-05-12")
	sender := &fakeSender{}

	report, err := f.scheduler(sender, 0).RunPending(context.Background(), mustDate(t, "2024-05-15"))
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if len(report.Weeks) != 1 {
		t.Fatalf("expected one candidate, got %v", statuses(report))
	}
	got := report.Weeks[0]
	if got.Key != (week.Key{Year: 2024, Week: 19}) || got.Status != summary.Summarized || got.DiaryCount != 7 {
		t.Fatalf("unexpected result %+v", got)
	}
	if filepath.Base(got.Path) != "2024_W19_20240506-20240512.md" {
		t.Fatalf("path = %s", got.Path)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(sender.calls))
	}
	msgs := sender.calls[0]
	if len(msgs) != 2 || msgs[0].Content != prompts.WeeklySummarySystem {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if !strings.Contains(msgs[1].Content, "日记数量：7 篇") {
		t.Fatalf("user message missing diary count:\n%s", msgs[1].Content)
	}
	last := -1
	for _, date := range []string{"2024-05-06", "2024-05-07", "2024-05-08", "2024-05-09", "2024-05-10", "2024-05-11", "2024-05-12"} {
		idx := strings.Index(msgs[1].Content, "- "+date+" 的记录")
		if idx < 0 {
			t.Fatalf("user message missing the %s entry:\n%s", date, msgs[1].Content)
		}
		if idx < last {
			t.Fatalf("%s appears out of chronological order", date)
		}
		last = idx
	}
	stored, ok, err := f.store.ReadSummary(got.Key)
	if err != nil || !ok {
		t.Fatalf("ReadSummary ok=%v err=%v", ok, err)
	}
	if !strings.HasPrefix(stored.Content, "总结") {
		t.Fatalf("stored summary = %q", stored.Content)
	}
}

func TestRunPendingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "2024-05-06", "2024-05-13")
	asOf := mustDate(t, "2024-05-22")

	first := &fakeSender{}
	if _, err := f.scheduler(first, 0).RunPending(context.Background(), asOf); err != nil {
		t.Fatal(err)
	}
	if len(first.calls) != 2 {
		t.Fatalf("expected two calls on first run, got %d", len(first.calls))
	}

	second := &fakeSender{}
	report, err := f.scheduler(second, 0).RunPending(context.Background(), asOf)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.calls) != 0 || report.Attempted() != 0 {
		t.Fatalf("expected zero calls on second run, got %d", len(second.calls))
	}
	if report.Count(summary.Existing) != 2 {
		t.Fatalf("statuses = %v", statuses(report))
	}
}

func TestRunPendingIsolatesWeekFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "2024-04-22", "2024-04-29", "2024-05-06")
	asOf := mustDate(t, "2024-05-15")

	sender := &fakeSender{failOn: map[int]bool{2: true}}
	report, err := f.scheduler(sender, 0).RunPending(context.Background(), asOf)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-W17=summarized", "2024-W18=failed", "2024-W19=summarized"}
	if got := statuses(report); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	failures := report.Failures()
	if len(failures) != 1 || !errors.Is(failures[0].Err, services.ErrGeneration) {
		t.Fatalf("failures = %+v", failures)
	}
	if !errors.Is(report.Err(), services.ErrGeneration) {
		t.Fatalf("report error = %v", report.Err())
	}
	if ok, _ := f.store.HasSummary(week.Key{Year: 2024, Week: 18}); ok {
		t.Fatal("failed week must not leave an artifact")
	}

	retry := &fakeSender{}
	report, err = f.scheduler(retry, 0).RunPending(context.Background(), asOf)
	if err != nil {
		t.Fatal(err)
	}
	if len(retry.calls) != 1 || report.Count(summary.Summarized) != 1 || report.Err() != nil {
		t.Fatalf("retry run: calls=%d statuses=%v", len(retry.calls), statuses(report))
	}
}

func TestRunPendingSeparatesSundayAndMonday(t *testing.T) {
	f := newFixture(t)
	f.write(t, "2024-05-12", "2024-05-13")
	sender := &fakeSender{}

	report, err := f.scheduler(sender, 0).RunPending(context.Background(), mustDate(t, "2024-05-20"))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Weeks) != 2 {
		t.Fatalf("statuses = %v", statuses(report))
	}
	for _, w := range report.Weeks {
		if w.Status != summary.Summarized || w.DiaryCount != 1 {
			t.Fatalf("unexpected week %+v", w)
		}
	}
}

func TestRunPendingIgnoresIncompleteWeek(t *testing.T) {
	f := newFixture(t)
	f.write(t, "2024-05-13", "2024-05-14")
	sender := &fakeSender{}

	report, err := f.scheduler(sender, 4).RunPending(context.Background(), mustDate(t, "2024-05-19"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(sender.calls))
	}
	want := []string{"2024-W16=skipped", "2024-W17=skipped", "2024-W18=skipped", "2024-W19=skipped"}
	if got := statuses(report); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
}

func TestRunPendingWithoutDiaries(t *testing.T) {
	f := newFixture(t)
	sender := &fakeSender{}
	report, err := f.scheduler(sender, 0).RunPending(context.Background(), mustDate(t, "2024-05-15"))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Weeks) != 0 || len(sender.calls) != 0 {
		t.Fatalf("expected empty report, got %v", statuses(report))
	}
}

func TestRunPendingStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.write(t, "2024-05-06")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{}
	_, err := f.scheduler(sender, 0).RunPending(ctx, mustDate(t, "2024-05-15"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(sender.calls))
	}
}
