package config

const (
	defaultConfigPath         = "~/.config/diaryassistant/config.toml"
	projectConfigName         = "diaryassistant.toml"
	defaultDiaryDir           = "~/diary/daily"
	defaultSummaryDir         = "~/diary/weekly"
	defaultLogDir             = "~/.local/share/diaryassistant/logs"
	defaultDiagnosticsDir     = "~/.local/share/diaryassistant/diagnostics"
	defaultStateDir           = "~/.local/share/diaryassistant/state"
	defaultLLMBaseURL         = "https://api.deepseek.com"
	defaultLLMModel           = "deepseek-reasoner"
	defaultLLMTimeoutSeconds  = 180
	defaultLLMMaxTokens       = 8000
	defaultRetryMaxAttempts   = 3
	defaultRetryBaseDelayMS   = 2000
	defaultRetryMaxDelayMS    = 30000
	defaultDailyContextDays   = 6
	defaultDailySummaryWeeks  = 4
	defaultDailyTemperature   = 1.5
	defaultProfileMaxChars    = 2400
	defaultWeeklyHorizonWeeks = 52
	defaultWeeklyTemperature  = 1.0
	defaultPreviewLength      = 500
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	apiKeyEnv                 = "DEEPSEEK_API_KEY"
	maxTemperature            = 2.0
	maxContextDays            = 31
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DiaryDirs:      []string{defaultDiaryDir},
			SummaryDir:     defaultSummaryDir,
			LogDir:         defaultLogDir,
			DiagnosticsDir: defaultDiagnosticsDir,
			StateDir:       defaultStateDir,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			MaxTokens:        defaultLLMMaxTokens,
			SaveInteractions: true,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
			MaxDelayMS:  defaultRetryMaxDelayMS,
			Jitter:      true,
		},
		Daily: Daily{
			ContextDays:         defaultDailyContextDays,
			SummaryContextWeeks: defaultDailySummaryWeeks,
			Temperature:         defaultDailyTemperature,
			IncludeTodos:        true,
			UseProfile:          true,
			ProfileMaxChars:     defaultProfileMaxChars,
		},
		Weekly: Weekly{
			HorizonWeeks: defaultWeeklyHorizonWeeks,
			Temperature:  defaultWeeklyTemperature,
		},
		Display: Display{
			PreviewLength: defaultPreviewLength,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
