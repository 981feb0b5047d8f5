package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"diaryassistant/internal/artifact"
	"diaryassistant/internal/config"
	"diaryassistant/internal/diary"
	"diaryassistant/internal/logging"
	"diaryassistant/internal/pipeline"
	"diaryassistant/internal/profile"
	"diaryassistant/internal/prompts"
	"diaryassistant/internal/services"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/week"
)

// Task names the daily request in logs, transcripts and the journal.
const Task = "daily_evaluation"

const dateLayout = "2006-01-02"

// Source reads diary records.
type Source interface {
	Read(date time.Time) (diary.Record, bool, error)
	Dates() ([]time.Time, error)
}

// Store provides weekly summaries and persists feedback.
type Store interface {
	Recent(key week.Key, limit int) ([]artifact.Summary, error)
	WriteFeedback(date time.Time, text string) (string, error)
}

// Sender delivers one prompt and returns its terminal result.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message, opts pipeline.Options) pipeline.Result
}

// Config controls how much context accompanies the target day.
type Config struct {
	ContextDays  int
	SummaryWeeks int
	Temperature  float64
	IncludeTodos bool
	// Force regenerates feedback for a day that already has it.
	Force bool
	// ProfilePath locates the user profile. Empty disables it.
	ProfilePath     string
	ProfileMaxChars int
}

// ConfigFrom derives the evaluation settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		ContextDays:     cfg.Daily.ContextDays,
		SummaryWeeks:    cfg.Daily.SummaryContextWeeks,
		Temperature:     cfg.Daily.Temperature,
		IncludeTodos:    cfg.Daily.IncludeTodos,
		ProfilePath:     cfg.ProfilePath(),
		ProfileMaxChars: cfg.Daily.ProfileMaxChars,
	}
}

// Status is the terminal state of one evaluation.
type Status int

const (
	NoDiary Status = iota
	AlreadyEvaluated
	Evaluated
	Failed
)

func (s Status) String() string {
	switch s {
	case NoDiary:
		return "no_diary"
	case AlreadyEvaluated:
		return "already_evaluated"
	case Evaluated:
		return "evaluated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome describes what Evaluate did for a date.
type Outcome struct {
	Status      Status
	Date        time.Time
	DiaryPath   string
	Feedback    string
	ContextDays int
	Attempts    int
	// Memory reports the profile edits applied from the response.
	Memory profile.Changes
}

// Evaluator runs daily evaluations.
type Evaluator struct {
	source Source
	store  Store
	sender Sender
	cfg    Config
	logger *slog.Logger
}

// New constructs an evaluator.
func New(source Source, store Store, sender Sender, cfg Config, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		source: source,
		store:  store,
		sender: sender,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "evaluation"),
	}
}

// Evaluate generates and stores feedback for date. The returned error is
// non-nil only when the status is Failed.
func (e *Evaluator) Evaluate(ctx context.Context, date time.Time) (Outcome, error) {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	ctx = services.WithTask(ctx, Task)
	logger := logging.WithContext(ctx, e.logger).With(logging.Date(date))
	outcome := Outcome{Status: Failed, Date: date}

	rec, ok, err := e.source.Read(date)
	if err != nil {
		return e.fail(logger, outcome, services.Wrap(services.ErrSource, Task, "read diary", date.Format(dateLayout), err))
	}
	if !ok {
		outcome.Status = NoDiary
		logger.Info("no diary for date; nothing to evaluate",
			logging.String(logging.FieldEventType, "diary_missing"),
		)
		return outcome, nil
	}
	outcome.DiaryPath = rec.Path
	if rec.HasFeedback() && !e.cfg.Force {
		outcome.Status = AlreadyEvaluated
		logger.Info("diary already has feedback; skipping",
			logging.String(logging.FieldEventType, "evaluation_skipped"),
			logging.String("diary_path", rec.Path),
			logging.String("reason", "feedback present; use --force to regenerate"),
		)
		return outcome, nil
	}

	contextDays, err := e.contextDays(date)
	if err != nil {
		return e.fail(logger, outcome, services.Wrap(services.ErrSource, Task, "read context", "", err))
	}
	outcome.ContextDays = len(contextDays)

	memory := e.loadProfile(logger)
	in := prompts.Daily{
		Target:    rec,
		Context:   contextDays,
		Summaries: e.summaries(logger, date),
		Todos:     e.todos(logger, date),
	}
	if memory != nil {
		in.Profile = memory.Text()
	}
	messages := prompts.DailyMessages(in)

	result := e.sender.Send(ctx, messages, pipeline.Options{
		Task:        Task,
		Temperature: e.cfg.Temperature,
	})
	outcome.Attempts = result.Attempts
	if !result.OK() {
		return e.fail(logger, outcome, services.Wrap(services.ErrGeneration, Task, "generate feedback", date.Format(dateLayout), result.Err))
	}

	feedback, changes := e.applyMemory(logger, memory, result.Content)
	outcome.Memory = changes
	path, err := e.store.WriteFeedback(date, feedback)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to save feedback", "feedback_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "feedback text is logged below; paste it into the diary manually"),
			logging.String("feedback", feedback),
		)
		return outcome, services.Wrap(services.ErrPersistence, Task, "write feedback", date.Format(dateLayout), err)
	}

	outcome.Status = Evaluated
	outcome.DiaryPath = path
	outcome.Feedback = feedback
	logger.Info("diary evaluated",
		logging.String(logging.FieldEventType, "evaluation_completed"),
		logging.String("diary_path", path),
		logging.Int("context_days", len(contextDays)),
		logging.Int("feedback_chars", utf8.RuneCountInString(feedback)),
	)
	return outcome, nil
}

// contextDays reads up to ContextDays preceding days, oldest first. Missing
// days are skipped without looking further back.
func (e *Evaluator) contextDays(date time.Time) ([]diary.Record, error) {
	var out []diary.Record
	for offset := e.cfg.ContextDays; offset >= 1; offset-- {
		rec, ok, err := e.source.Read(date.AddDate(0, 0, -offset))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (e *Evaluator) summaries(logger *slog.Logger, date time.Time) []artifact.Summary {
	if e.cfg.SummaryWeeks <= 0 || e.store == nil {
		return nil
	}
	summaries, err := e.store.Recent(week.KeyFor(date), e.cfg.SummaryWeeks)
	if err != nil {
		logging.WarnWithContext(logger, "weekly summaries unavailable", "summary_context_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.summary_dir permissions"),
			logging.String(logging.FieldImpact, "evaluation proceeds without weekly summaries"),
		)
		return nil
	}
	return summaries
}

// todos builds the digest from every diary up to and including date.
func (e *Evaluator) todos(logger *slog.Logger, date time.Time) []diary.TodoGroup {
	if !e.cfg.IncludeTodos {
		return nil
	}
	records, err := e.recordsThrough(date)
	if err != nil {
		logging.WarnWithContext(logger, "todo digest unavailable", "todo_digest_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.diary_dirs permissions"),
			logging.String(logging.FieldImpact, "evaluation proceeds without the todo digest"),
		)
		return nil
	}
	return diary.OpenTodos(records, date)
}

func (e *Evaluator) recordsThrough(date time.Time) ([]diary.Record, error) {
	dates, err := e.source.Dates()
	if err != nil {
		return nil, err
	}
	var records []diary.Record
	for _, d := range dates {
		if d.After(date) {
			break
		}
		rec, ok, err := e.source.Read(d)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// loadProfile returns nil when the profile is disabled or unreadable. An
// unreadable profile is neither sent nor updated.
func (e *Evaluator) loadProfile(logger *slog.Logger) *profile.Profile {
	if e.cfg.ProfilePath == "" {
		return nil
	}
	memory, err := profile.Load(e.cfg.ProfilePath)
	if err != nil {
		logging.WarnWithContext(logger, "user profile unavailable", "profile_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or remove "+e.cfg.ProfilePath),
			logging.String(logging.FieldImpact, "evaluation proceeds without the user profile; memory updates are not applied"),
		)
		return nil
	}
	return memory
}

// applyMemory applies the memory_updates block of content to the profile and
// returns the feedback with the block removed.
func (e *Evaluator) applyMemory(logger *slog.Logger, memory *profile.Profile, content string) (string, profile.Changes) {
	if memory == nil {
		return content, profile.Changes{}
	}
	cleaned, updates, err := profile.Extract(content)
	if err != nil {
		logging.WarnWithContext(logger, "memory updates ignored", "profile_update_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the block stays in the saved feedback; apply it to the profile by hand"),
			logging.String(logging.FieldImpact, "user profile left unchanged"),
		)
		return content, profile.Changes{}
	}
	if updates == nil {
		return cleaned, profile.Changes{}
	}

	changes := memory.Apply(*updates)
	if len(changes.Unmatched) > 0 {
		logging.WarnWithContext(logger, "memory updates did not match the profile", "profile_update_unmatched",
			logging.String("unmatched", strings.Join(changes.Unmatched, "; ")),
			logging.String(logging.FieldErrorHint, "edit "+memory.Path()+" by hand if these facts are stale"),
			logging.String(logging.FieldImpact, "unmatched removals and rewrites were skipped"),
		)
	}
	if changes.Any() {
		if err := memory.Save(); err != nil {
			logging.WarnWithContext(logger, "failed to save user profile", "profile_save_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
				logging.String(logging.FieldImpact, "memory updates from this evaluation are lost"),
			)
			return cleaned, profile.Changes{Unmatched: changes.Unmatched}
		}
		logger.Info("user profile updated",
			logging.String(logging.FieldEventType, "profile_updated"),
			logging.Int("added", changes.Added),
			logging.Int("removed", changes.Removed),
			logging.Int("updated", changes.Updated),
			logging.Int("facts", len(memory.Facts())),
		)
	}
	if limit := e.cfg.ProfileMaxChars; limit > 0 && memory.Length() > limit {
		logging.WarnWithContext(logger, "user profile exceeds size limit", "profile_oversized",
			logging.Int("chars", memory.Length()),
			logging.Int("limit", limit),
			logging.String(logging.FieldErrorHint, "consolidate facts in "+memory.Path()),
			logging.String(logging.FieldImpact, "longer prompts on every evaluation"),
		)
	}
	return cleaned, changes
}

func (e *Evaluator) fail(logger *slog.Logger, outcome Outcome, err error) (Outcome, error) {
	outcome.Status = Failed
	logging.ErrorWithContext(logger, "daily evaluation failed", "evaluation_failed",
		logging.Error(err),
		logging.Int(logging.FieldAttempt, outcome.Attempts),
		logging.String(logging.FieldErrorHint, "the diary was left unchanged; rerun the daily command later"),
	)
	return outcome, err
}
