// Package runner coordinates one assistant invocation: the daily evaluation
// followed by the weekly summary scan, under a single-instance lock.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"diaryassistant/internal/evaluation"
	"diaryassistant/internal/logging"
	"diaryassistant/internal/services"
	"diaryassistant/internal/summary"
)

// Evaluator evaluates one diary day.
type Evaluator interface {
	Evaluate(ctx context.Context, date time.Time) (evaluation.Outcome, error)
}

// Scheduler generates pending weekly summaries.
type Scheduler interface {
	RunPending(ctx context.Context, asOf time.Time) (summary.Report, error)
}

// Tasks selects which flows a run performs.
type Tasks struct {
	Daily  bool
	Weekly bool
}

// All runs both flows.
var All = Tasks{Daily: true, Weekly: true}

// Summary collects the outcome of both flows.
type Summary struct {
	RunID     string
	Date      time.Time
	Daily     *evaluation.Outcome
	DailyErr  error
	Weekly    *summary.Report
	WeeklyErr error
}

// Err joins every failure of the run.
func (s Summary) Err() error {
	errs := []error{s.DailyErr, s.WeeklyErr}
	if s.Weekly != nil {
		errs = append(errs, s.Weekly.Err())
	}
	return errors.Join(errs...)
}

// Runner owns the lock and drives both flows.
type Runner struct {
	lockPath  string
	evaluator Evaluator
	scheduler Scheduler
	logger    *slog.Logger
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithIDGenerator overrides run id generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// New constructs a runner. The lock file is created on first use.
func New(lockPath string, evaluator Evaluator, scheduler Scheduler, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		lockPath:  lockPath,
		evaluator: evaluator,
		scheduler: scheduler,
		logger:    logging.NewComponentLogger(logger, "runner"),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run performs the selected flows for date. A failing daily evaluation does
// not prevent the weekly scan. The returned error covers only the lock;
// flow failures are reported through Summary.Err.
func (r *Runner) Run(ctx context.Context, date time.Time, tasks Tasks) (Summary, error) {
	result := Summary{RunID: r.newID(), Date: date}

	unlock, err := r.acquire()
	if err != nil {
		return result, err
	}
	defer unlock()

	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)
	start := time.Now()
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Date(date),
		logging.Bool("daily", tasks.Daily),
		logging.Bool("weekly", tasks.Weekly),
	)

	if tasks.Daily && r.evaluator != nil {
		outcome, err := r.evaluator.Evaluate(ctx, date)
		result.Daily = &outcome
		result.DailyErr = err
	}
	if tasks.Weekly && r.scheduler != nil {
		report, err := r.scheduler.RunPending(ctx, date)
		result.Weekly = &report
		result.WeeklyErr = err
	}

	attrs := []logging.Attr{
		logging.Duration("elapsed", time.Since(start)),
	}
	if result.Daily != nil {
		attrs = append(attrs, logging.String("daily", result.Daily.Status.String()))
	}
	if result.Weekly != nil {
		attrs = append(attrs,
			logging.Int("weeks_summarized", result.Weekly.Count(summary.Summarized)),
			logging.Int("weeks_failed", result.Weekly.Count(summary.Failed)),
		)
	}
	if err := result.Err(); err != nil {
		attrs = append(attrs, logging.Error(err), logging.String(logging.FieldImpact, "completed work was kept; failed items retry on the next run"))
		logging.WarnWithContext(logger, "run finished with failures", "run_completed", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldEventType, "run_completed"))
		logger.Info("run finished", logging.Args(attrs...)...)
	}
	return result, nil
}

func (r *Runner) acquire() (func(), error) {
	if r.lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(r.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(r.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: lock held at %s", services.ErrBusy, r.lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}
