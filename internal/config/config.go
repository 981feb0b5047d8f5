package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"diaryassistant/internal/retry"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DiaryDirs      []string `toml:"diary_dirs"`
	SummaryDir     string   `toml:"summary_dir"`
	LogDir         string   `toml:"log_dir"`
	DiagnosticsDir string   `toml:"diagnostics_dir"`
	StateDir       string   `toml:"state_dir"`
}

// LLM contains the generation API connection settings.
type LLM struct {
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	Model            string `toml:"model"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxTokens        int    `toml:"max_tokens"`
	SaveInteractions bool   `toml:"save_interactions"`
}

// Retry contains the backoff policy applied to API requests.
type Retry struct {
	MaxAttempts int  `toml:"max_attempts"`
	BaseDelayMS int  `toml:"base_delay_ms"`
	MaxDelayMS  int  `toml:"max_delay_ms"`
	Jitter      bool `toml:"jitter"`
}

// Daily contains settings for the daily evaluation.
type Daily struct {
	ContextDays         int     `toml:"context_days"`
	SummaryContextWeeks int     `toml:"summary_context_weeks"`
	Temperature         float64 `toml:"temperature"`
	IncludeTodos        bool    `toml:"include_todos"`
	// UseProfile sends the long-term user profile with each evaluation and
	// applies the memory updates the model returns.
	UseProfile bool `toml:"use_profile"`
	// ProfileMaxChars triggers a warning once the profile grows past it.
	// Zero disables the check.
	ProfileMaxChars int `toml:"profile_max_chars"`
}

// Weekly contains settings for the weekly summary scheduler.
type Weekly struct {
	// HorizonWeeks bounds how many complete weeks are scanned. Zero scans back
	// to the week of the earliest diary.
	HorizonWeeks int     `toml:"horizon_weeks"`
	Temperature  float64 `toml:"temperature"`
}

// Display contains CLI output settings.
type Display struct {
	PreviewLength int `toml:"preview_length"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the diary assistant.
//
// Configuration sections by subsystem:
//   - Paths: diary sources and output/state directories
//   - LLM: generation API connection settings
//   - Retry: attempt budget and backoff
//   - Daily: daily evaluation context window and sampling
//   - Weekly: weekly summary horizon and sampling
//   - Display: CLI preview formatting
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	LLM     LLM     `toml:"llm"`
	Retry   Retry   `toml:"retry"`
	Daily   Daily   `toml:"daily"`
	Weekly  Weekly  `toml:"weekly"`
	Display Display `toml:"display"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and state directories. Diary
// directories are only read and never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SummaryDir, c.Paths.LogDir, c.Paths.DiagnosticsDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the request journal database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the single-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "diaryassistant.lock")
}

// ProfilePath returns the user profile location, or an empty string when the
// profile is disabled.
func (c *Config) ProfilePath() string {
	if !c.Daily.UseProfile {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "user_profile.json")
}

// LogFilePath returns the structured log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "diaryassistant.log")
}

// InteractionDir returns where request/response transcripts are written, or
// an empty string when saving interactions is disabled.
func (c *Config) InteractionDir() string {
	if !c.LLM.SaveInteractions {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "api_interactions")
}

// BackupDir returns a timestamped directory for diary backups.
func (c *Config) BackupDir(now time.Time) string {
	return filepath.Join(c.Paths.LogDir, "backup_"+now.Format("20060102_150405"))
}

// LLMConfig contains the generation API settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxTokens      int
}

// GetLLM returns the generation API connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		MaxTokens:      c.LLM.MaxTokens,
	}
}

// AttemptTimeout returns the per-attempt request deadline.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// RetryPolicy translates the retry section into a backoff policy.
func (c *Config) RetryPolicy() retry.Policy {
	policy := retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
	}
	if c.Retry.Jitter {
		policy.Jitter = retry.EqualJitter
	}
	return policy
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML. API keys are masked.
func Encode(cfg Config) (string, error) {
	if cfg.LLM.APIKey != "" {
		cfg.LLM.APIKey = maskSecret(cfg.LLM.APIKey)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}
