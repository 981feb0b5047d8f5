package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"diaryassistant/internal/journal"
	"diaryassistant/internal/logging"
	"diaryassistant/internal/retry"
	"diaryassistant/internal/services"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/textutil"
)

const (
	defaultTask        = "request"
	journalMessageSize = 500
)

// Sender performs exactly one completion call.
type Sender interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Recorder persists attempt outcomes.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Config holds the pipeline settings.
type Config struct {
	Policy         retry.Policy
	AttemptTimeout time.Duration
	// Model and MaxTokens apply when Options leave them empty.
	Model     string
	MaxTokens int
	// DiagnosticsDir receives failed request dumps. Empty disables them.
	DiagnosticsDir string
	// InteractionDir receives successful transcripts. Empty disables them.
	InteractionDir string
}

// Options describe one request.
type Options struct {
	Task        string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Result is the terminal outcome of Send.
type Result struct {
	RequestID       string
	Content         string
	FinishReason    string
	Usage           llm.Usage
	Attempts        int
	Elapsed         time.Duration
	Err             error
	DiagnosticsPath string
	InteractionPath string
}

// OK reports whether the request produced content.
func (r Result) OK() bool {
	return r.Err == nil
}

// Pipeline sends requests through a Sender with retries.
type Pipeline struct {
	sender   Sender
	cfg      Config
	logger   *slog.Logger
	sleep    retry.Sleeper
	recorder Recorder
	now      func() time.Time
	tokens   textutil.TokenCounter
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A component attribute is added.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "pipeline")
		}
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleep retry.Sleeper) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithRecorder records every attempt.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = recorder
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTokenCounter sets the estimator used for the prompt_tokens log field.
func WithTokenCounter(counter textutil.TokenCounter) Option {
	return func(p *Pipeline) {
		if counter != nil {
			p.tokens = counter
		}
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// New constructs a pipeline.
func New(sender Sender, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		sender: sender,
		cfg:    cfg,
		logger: logging.NewComponentLogger(nil, "pipeline"),
		sleep:  retry.Sleep,
		now:    time.Now,
		tokens: textutil.HeuristicTokenizer(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// request bundles the per-Send state shared by attempts.
type request struct {
	id           string
	task         string
	req          llm.Request
	promptChars  int
	promptTokens int
	maxAttempts  int
	logger       *slog.Logger
}

// Send delivers messages and returns the terminal result.
func (p *Pipeline) Send(ctx context.Context, messages []llm.Message, opts Options) Result {
	start := p.now()
	r := p.prepare(ctx, messages, opts)
	ctx = services.WithRequestID(ctx, r.id)
	result := Result{RequestID: r.id}

	if p.sender == nil {
		result.Err = fmt.Errorf("%s: %w: no sender configured", r.task, llm.ErrInvalidRequest)
		return p.fail(ctx, r, result, start)
	}
	if err := llm.ValidateMessages(messages); err != nil {
		result.Err = fmt.Errorf("%s: %w", r.task, err)
		return p.fail(ctx, r, result, start)
	}

	r.logger.Info("sending request",
		logging.String(logging.FieldEventType, "request_started"),
		logging.Int(logging.FieldMaxAttempts, r.maxAttempts),
		logging.Int("prompt_chars", r.promptChars),
		logging.Int("prompt_tokens", r.promptTokens),
		logging.String("model", r.req.Model),
	)

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result.Attempts = attempt
		attemptStart := p.now()
		resp, err := p.attempt(ctx, r.req)
		elapsed := p.now().Sub(attemptStart)

		if err == nil {
			p.record(ctx, r, attempt, journal.OutcomeSuccess, nil, elapsed, resp.Usage)
			result.Content = resp.Content
			result.FinishReason = resp.FinishReason
			result.Usage = resp.Usage
			result.Elapsed = p.now().Sub(start)
			result.InteractionPath = p.writeInteraction(r, resp, start)
			r.logger.Info("request completed",
				logging.String(logging.FieldEventType, "request_completed"),
				logging.String("outcome", journal.OutcomeSuccess),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Duration("elapsed", result.Elapsed),
				logging.Int("response_chars", utf8.RuneCountInString(resp.Content)),
				logging.Int("prompt_tokens", resp.Usage.PromptTokens),
				logging.Int("completion_tokens", resp.Usage.CompletionTokens),
				logging.String("finish_reason", resp.FinishReason),
			)
			return result
		}

		lastErr = err
		class := llm.Classify(err)
		attrs := []logging.Attr{
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int(logging.FieldMaxAttempts, r.maxAttempts),
			logging.String(logging.FieldErrorClass, class.String()),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		}
		if status := llm.StatusCode(err); status > 0 {
			attrs = append(attrs, logging.Int("status_code", status))
		}

		if ctx.Err() != nil {
			p.record(ctx, r, attempt, journal.OutcomeCancelled, err, elapsed, llm.Usage{})
			result.Err = fmt.Errorf("%s: cancelled after %d attempts: %w", r.task, attempt, ctx.Err())
			return p.fail(ctx, r, result, start)
		}
		if class == llm.ClassPermanent || attempt == r.maxAttempts {
			p.record(ctx, r, attempt, journal.OutcomeFailed, err, elapsed, llm.Usage{})
			attrs = append(attrs, logging.String("outcome", journal.OutcomeFailed))
			r.logger.Warn("attempt failed", logging.Args(attrs...)...)
			break
		}

		delay := p.cfg.Policy.Delay(attempt)
		p.record(ctx, r, attempt, journal.OutcomeRetry, err, elapsed, llm.Usage{})
		attrs = append(attrs,
			logging.String("outcome", journal.OutcomeRetry),
			logging.Duration("backoff", delay),
		)
		logging.WarnWithContext(r.logger, "attempt failed; retrying", "request_retry",
			append(attrs,
				logging.String(logging.FieldErrorHint, "transient API failure; waiting before the next attempt"),
				logging.String(logging.FieldImpact, "request delayed"),
			)...,
		)
		if err := p.sleep(ctx, delay); err != nil {
			result.Err = fmt.Errorf("%s: cancelled after %d attempts: %w", r.task, attempt, err)
			return p.fail(ctx, r, result, start)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	result.Err = fmt.Errorf("%s: failed after %d attempts: %w", r.task, result.Attempts, lastErr)
	return p.fail(ctx, r, result, start)
}

func (p *Pipeline) prepare(ctx context.Context, messages []llm.Message, opts Options) request {
	task := strings.TrimSpace(opts.Task)
	if task == "" {
		if fromCtx, ok := services.TaskFromContext(ctx); ok {
			task = fromCtx
		} else {
			task = defaultTask
		}
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = p.cfg.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}

	contents := make([]string, len(messages))
	promptChars := 0
	for i, msg := range messages {
		contents[i] = msg.Content
		promptChars += utf8.RuneCountInString(msg.Content)
	}

	id := p.newID()
	logger := logging.WithContext(services.WithRequestID(ctx, id), p.logger)
	if !hasTask(ctx) {
		logger = logger.With(logging.String(logging.FieldTask, task))
	}
	return request{
		id:   id,
		task: task,
		req: llm.Request{
			Model:       model,
			Messages:    messages,
			Temperature: opts.Temperature,
			MaxTokens:   maxTokens,
		},
		promptChars:  promptChars,
		promptTokens: textutil.CountMessages(p.tokens, contents...),
		maxAttempts:  p.cfg.Policy.Attempts(),
		logger:       logger,
	}
}

func hasTask(ctx context.Context) bool {
	_, ok := services.TaskFromContext(ctx)
	return ok
}

// attempt performs one call under the per-attempt deadline.
func (p *Pipeline) attempt(ctx context.Context, req llm.Request) (llm.Response, error) {
	if p.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
	}
	resp, err := p.sender.Complete(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return llm.Response{}, &llm.Error{Class: llm.ClassTransient, Op: "pipeline send", Err: llm.ErrEmptyContent}
	}
	return resp, nil
}

func (p *Pipeline) fail(ctx context.Context, r request, result Result, start time.Time) Result {
	result.Elapsed = p.now().Sub(start)
	result.DiagnosticsPath = p.writeDiagnostics(ctx, r, result, start)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "request_failed"),
		logging.Int(logging.FieldAttempt, result.Attempts),
		logging.Int(logging.FieldMaxAttempts, r.maxAttempts),
		logging.String(logging.FieldErrorClass, llm.Classify(result.Err).String()),
		logging.Duration("elapsed", result.Elapsed),
		logging.Error(result.Err),
		logging.String(logging.FieldErrorHint, failureHint(result.Err)),
	}
	if result.DiagnosticsPath != "" {
		attrs = append(attrs, logging.String(logging.FieldDiagnosticsPath, result.DiagnosticsPath))
	}
	logging.ErrorWithContext(r.logger, "request failed", "request_failed", attrs...)
	return result
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "run was interrupted; rerun to finish the remaining work"
	case errors.Is(err, llm.ErrInvalidRequest):
		return "the prompt was rejected before sending; check diary content"
	}
	switch llm.StatusCode(err) {
	case 401, 403:
		return "check llm.api_key or DEEPSEEK_API_KEY"
	case 402:
		return "check the API account balance"
	case 429:
		return "rate limited; rerun later or raise retry.max_delay_ms"
	}
	if llm.IsTransient(err) {
		return "API unavailable; rerun later, completed work is kept"
	}
	return "inspect the diagnostics file and the request journal"
}

func (p *Pipeline) record(ctx context.Context, r request, attempt int, outcome string, err error, elapsed time.Duration, usage llm.Usage) {
	if p.recorder == nil {
		return
	}
	entry := journal.Entry{
		RequestID:        r.id,
		Task:             r.task,
		Attempt:          attempt,
		MaxAttempts:      r.maxAttempts,
		Outcome:          outcome,
		PromptChars:      r.promptChars,
		PromptTokens:     r.promptTokens,
		CompletionTokens: usage.CompletionTokens,
		Elapsed:          elapsed,
		CreatedAt:        p.now(),
	}
	if usage.PromptTokens > 0 {
		entry.PromptTokens = usage.PromptTokens
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		entry.RunID = runID
	}
	if err != nil {
		entry.ErrorClass = llm.Classify(err).String()
		entry.StatusCode = llm.StatusCode(err)
		entry.ErrorMessage = textutil.Truncate(err.Error(), journalMessageSize)
	}
	// A cancelled run still records its last attempt.
	if recErr := p.recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		logging.WarnWithContext(r.logger, "journal write failed", "journal_write_failed",
			logging.Error(recErr),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "attempt missing from the request journal"),
		)
	}
}
