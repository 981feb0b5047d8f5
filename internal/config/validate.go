package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. The API key is not required
// here so read-only commands work without credentials; see ValidateForGeneration.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateDaily(); err != nil {
		return err
	}
	if err := c.validateWeekly(); err != nil {
		return err
	}
	if c.Display.PreviewLength < 0 {
		return errors.New("display.preview_length must be zero or positive")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateForGeneration additionally requires credentials for the generation API.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set %s env var or edit %s (create with 'diaryassistant config init')", apiKeyEnv, defaultPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if len(c.Paths.DiaryDirs) == 0 {
		return errors.New("paths.diary_dirs must list at least one directory")
	}
	if c.Paths.SummaryDir == "" {
		return errors.New("paths.summary_dir must be set")
	}
	for _, dir := range c.Paths.DiaryDirs {
		if dir == c.Paths.SummaryDir {
			return fmt.Errorf("paths.summary_dir must differ from diary directory %q", dir)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	lower := strings.ToLower(c.LLM.BaseURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.BaseDelayMS < 0 {
		return errors.New("retry.base_delay_ms must be zero or positive")
	}
	if c.Retry.MaxDelayMS < 0 {
		return errors.New("retry.max_delay_ms must be zero or positive")
	}
	if c.Retry.MaxDelayMS > 0 && c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return errors.New("retry.max_delay_ms must be at least retry.base_delay_ms")
	}
	return nil
}

func (c *Config) validateDaily() error {
	if c.Daily.ContextDays < 0 || c.Daily.ContextDays > maxContextDays {
		return fmt.Errorf("daily.context_days must be between 0 and %d", maxContextDays)
	}
	if c.Daily.SummaryContextWeeks < 0 {
		return errors.New("daily.summary_context_weeks must be zero or positive")
	}
	if c.Daily.Temperature < 0 || c.Daily.Temperature > maxTemperature {
		return fmt.Errorf("daily.temperature must be between 0 and %.1f", maxTemperature)
	}
	if c.Daily.ProfileMaxChars < 0 {
		return errors.New("daily.profile_max_chars must be zero or positive")
	}
	return nil
}

func (c *Config) validateWeekly() error {
	if c.Weekly.HorizonWeeks < 0 {
		return errors.New("weekly.horizon_weeks must be zero or positive")
	}
	if c.Weekly.Temperature < 0 || c.Weekly.Temperature > maxTemperature {
		return fmt.Errorf("weekly.temperature must be between 0 and %.1f", maxTemperature)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
