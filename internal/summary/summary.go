package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"diaryassistant/internal/artifact"
	"diaryassistant/internal/config"
	"diaryassistant/internal/diary"
	"diaryassistant/internal/logging"
	"diaryassistant/internal/pipeline"
	"diaryassistant/internal/prompts"
	"diaryassistant/internal/services"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/week"
)

// Task names the weekly request in logs, transcripts and the journal.
const Task = "weekly_summary"

// Source reads diary records.
type Source interface {
	Read(date time.Time) (diary.Record, bool, error)
	Dates() ([]time.Time, error)
}

// Store tracks and persists summary artifacts.
type Store interface {
	HasSummary(key week.Key) (bool, error)
	WriteSummary(key week.Key, text string, meta artifact.Meta) (string, error)
}

// Sender delivers one prompt and returns its terminal result.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, opts pipeline.Options) pipeline.Result
}

// Config controls the scan.
type Config struct {
	// HorizonWeeks bounds how far back complete weeks are considered. Zero
	// scans back to the week of the earliest diary.
	HorizonWeeks int
	Temperature  float64
}

// ConfigFrom derives the scheduler settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		HorizonWeeks: cfg.Weekly.HorizonWeeks,
		Temperature:  cfg.Weekly.Temperature,
	}
}

// Status is the terminal state of one week.
type Status int

const (
	Existing Status = iota
	Skipped
	Summarized
	Failed
)

func (s Status) String() string {
	switch s {
	case Existing:
		return "existing"
	case Skipped:
		return "skipped"
	case Summarized:
		return "summarized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// WeekResult records what happened to one candidate week.
type WeekResult struct {
	Key        week.Key
	Status     Status
	DiaryCount int
	Path       string
	Attempts   int
	Err        error
}

// Report lists every candidate week in chronological order.
type Report struct {
	Weeks []WeekResult
}

// Failures returns the failed weeks.
func (r Report) Failures() []WeekResult {
	var out []WeekResult
	for _, w := range r.Weeks {
		if w.Status == Failed {
			out = append(out, w)
		}
	}
	return out
}

// Attempted counts weeks that reached the generation API.
func (r Report) Attempted() int {
	n := 0
	for _, w := range r.Weeks {
		if w.Attempts > 0 {
			n++
		}
	}
	return n
}

// Count returns how many weeks ended in status.
func (r Report) Count(status Status) int {
	n := 0
	for _, w := range r.Weeks {
		if w.Status == status {
			n++
		}
	}
	return n
}

// Err joins every week failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, w := range r.Failures() {
		errs = append(errs, w.Err)
	}
	return errors.Join(errs...)
}

// Scheduler generates missing weekly summaries.
type Scheduler struct {
	source Source
	store  Store
	sender Sender
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a scheduler.
func New(source Source, store Store, sender Sender, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		source: source,
		store:  store,
		sender: sender,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "summary"),
		now:    time.Now,
	}
}

// RunPending processes every candidate week as of asOf. The error is non-nil
// only when candidates cannot be determined or ctx ends the run early;
// per-week failures are reported in the Report.
func (s *Scheduler) RunPending(ctx context.Context, asOf time.Time) (Report, error) {
	ctx = services.WithTask(ctx, Task)
	logger := logging.WithContext(ctx, s.logger)

	candidates, err := s.candidates(asOf)
	if err != nil {
		err = services.Wrap(services.ErrSource, Task, "list diaries", "", err)
		logging.ErrorWithContext(logger, "cannot determine pending weeks", "summary_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.diary_dirs"),
		)
		return Report{}, err
	}

	var report Report
	for _, key := range candidates {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: stopped before %s: %w", Task, key, err)
		}
		report.Weeks = append(report.Weeks, s.process(ctx, logger, key))
	}

	logger.Info("weekly summaries processed",
		logging.String(logging.FieldEventType, "summary_scan_completed"),
		logging.Int("candidates", len(report.Weeks)),
		logging.Int("summarized", report.Count(Summarized)),
		logging.Int("existing", report.Count(Existing)),
		logging.Int("skipped", report.Count(Skipped)),
		logging.Int("failed", report.Count(Failed)),
	)
	return report, nil
}

// candidates lists complete weeks within the horizon, oldest first. The
// whole horizon is scanned so that gaps left by earlier failures are filled.
func (s *Scheduler) candidates(asOf time.Time) ([]week.Key, error) {
	last := week.LastComplete(asOf)
	var keys []week.Key
	if s.cfg.HorizonWeeks > 0 {
		key := last
		for i := 0; i < s.cfg.HorizonWeeks; i++ {
			keys = append(keys, key)
			key = key.Previous()
		}
	} else {
		dates, err := s.source.Dates()
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, nil
		}
		earliest := week.KeyFor(dates[0])
		for key := last; !key.Before(earliest); key = key.Previous() {
			keys = append(keys, key)
		}
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, nil
}

func (s *Scheduler) process(ctx context.Context, logger *slog.Logger, key week.Key) WeekResult {
	logger = logger.With(logging.String(logging.FieldWeek, key.String()))
	result := WeekResult{Key: key, Status: Failed}

	exists, err := s.store.HasSummary(key)
	if err != nil {
		return s.fail(logger, result, services.Wrap(services.ErrPersistence, Task, "check summary", key.String(), err))
	}
	if exists {
		result.Status = Existing
		logger.Debug("summary already exists", logging.String(logging.FieldEventType, "summary_exists"))
		return result
	}

	records, err := s.weekRecords(key)
	if err != nil {
		return s.fail(logger, result, services.Wrap(services.ErrSource, Task, "read week", key.String(), err))
	}
	result.DiaryCount = len(records)
	if len(records) == 0 {
		result.Status = Skipped
		logger.Debug("no diaries in week", logging.String(logging.FieldEventType, "summary_skipped"))
		return result
	}

	logger.Info("summarizing week",
		logging.String(logging.FieldEventType, "summary_started"),
		logging.String("range", key.Range()),
		logging.Int("diary_count", len(records)),
	)
	res := s.sender.Send(ctx, prompts.WeeklyMessages(key, records), pipeline.Options{
		Task:        Task,
		Temperature: s.cfg.Temperature,
	})
	result.Attempts = res.Attempts
	if !res.OK() {
		return s.fail(logger, result, services.Wrap(services.ErrGeneration, Task, "generate summary", key.String(), res.Err))
	}

	path, err := s.store.WriteSummary(key, res.Content, artifact.Meta{Generated: s.now(), DiaryCount: len(records)})
	if err != nil {
		logging.ErrorWithContext(logger, "failed to save weekly summary", "summary_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "summary text is logged below; check paths.summary_dir"),
			logging.String("summary", res.Content),
		)
		result.Err = services.Wrap(services.ErrPersistence, Task, "write summary", key.String(), err)
		return result
	}

	result.Status = Summarized
	result.Path = path
	logger.Info("weekly summary written",
		logging.String(logging.FieldEventType, "summary_completed"),
		logging.String("summary_path", path),
		logging.Int("diary_count", len(records)),
		logging.Int("summary_chars", utf8.RuneCountInString(res.Content)),
	)
	return result
}

func (s *Scheduler) weekRecords(key week.Key) ([]diary.Record, error) {
	var records []diary.Record
	for _, date := range key.Dates() {
		rec, ok, err := s.source.Read(date)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *Scheduler) fail(logger *slog.Logger, result WeekResult, err error) WeekResult {
	result.Status = Failed
	result.Err = err
	logging.ErrorWithContext(logger, "weekly summary failed", "summary_failed",
		logging.Error(err),
		logging.Int(logging.FieldAttempt, result.Attempts),
		logging.String(logging.FieldErrorHint, "no artifact was written; the week is retried on the next run"),
	)
	return result
}
