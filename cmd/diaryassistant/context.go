package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"diaryassistant/internal/artifact"
	"diaryassistant/internal/config"
	"diaryassistant/internal/diary"
	"diaryassistant/internal/evaluation"
	"diaryassistant/internal/journal"
	"diaryassistant/internal/logging"
	"diaryassistant/internal/pipeline"
	"diaryassistant/internal/runner"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/summary"
	"diaryassistant/internal/textutil"
)

// newTokenizer builds the prompt token estimator. Tests swap it for the
// heuristic so no encoding is fetched.
var newTokenizer = func() textutil.TokenCounter {
	return textutil.NewTokenizer("cl100k_base")
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// app holds the resources shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	journal *journal.Store
	reader  *diary.Reader
	store   *artifact.Store
}

func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	reader := diary.NewReader(cfg.Paths.DiaryDirs, diary.DefaultVariants())
	return &app{
		cfg:     cfg,
		logger:  logger,
		journal: store,
		reader:  reader,
		store:   artifact.NewStore(cfg.Paths.SummaryDir, reader),
	}, nil
}

func (a *app) Close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// prune drops interaction transcripts, diagnostics and journal rows older
// than the retention window.
func (a *app) prune(ctx context.Context) {
	days := a.cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	targets := []logging.RetentionTarget{
		{Dir: a.cfg.Paths.DiagnosticsDir, Pattern: "*.txt"},
	}
	if dir := a.cfg.InteractionDir(); dir != "" {
		targets = append(targets, logging.RetentionTarget{Dir: dir, Pattern: "*.txt"})
	}
	logging.CleanupOldLogs(a.logger.Logger, days, targets...)
	if _, err := a.journal.Prune(ctx, time.Now().AddDate(0, 0, -days)); err != nil {
		a.logger.Warn("journal prune failed", logging.Error(err))
	}
}

// newRunner wires the generation stack. The API key is required from here on.
func (a *app) newRunner(flags runFlags) (*runner.Runner, error) {
	if err := a.cfg.ValidateForGeneration(); err != nil {
		return nil, err
	}
	llmCfg := a.cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	sender := pipeline.New(client, pipeline.Config{
		Policy:         a.cfg.RetryPolicy(),
		AttemptTimeout: a.cfg.AttemptTimeout(),
		Model:          llmCfg.Model,
		MaxTokens:      llmCfg.MaxTokens,
		DiagnosticsDir: a.cfg.Paths.DiagnosticsDir,
		InteractionDir: a.cfg.InteractionDir(),
	},
		pipeline.WithLogger(a.logger.Logger),
		pipeline.WithRecorder(a.journal),
		pipeline.WithTokenCounter(newTokenizer()),
	)

	evalCfg := evaluation.ConfigFrom(a.cfg)
	evalCfg.Force = flags.force
	evaluator := evaluation.New(a.reader, a.store, sender, evalCfg, a.logger.Logger)
	scheduler := summary.New(a.reader, a.store, sender, summary.ConfigFrom(a.cfg), a.logger.Logger)
	return runner.New(a.cfg.LockPath(), evaluator, scheduler, a.logger.Logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
