package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of the daily and weekly tasks.
	FieldRunID = "run_id"
	// FieldTask names the task being executed (daily_evaluation, weekly_summary).
	FieldTask = "task"
	// FieldRequestID correlates every attempt of one generation request.
	FieldRequestID = "request_id"
	// FieldDate is the diary date a log line refers to (YYYY-MM-DD).
	FieldDate = "date"
	// FieldWeek is the ISO week key a log line refers to (YYYY-Www).
	FieldWeek = "week"
	// FieldAttempt is the 1-based attempt number of a request.
	FieldAttempt = "attempt"
	// FieldMaxAttempts is the attempt budget of a request.
	FieldMaxAttempts = "max_attempts"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldErrorClass is the transient/permanent classification of a failure.
	FieldErrorClass = "error_class"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDiagnosticsPath points at the diagnostics file written for a failure.
	FieldDiagnosticsPath = "diagnostics_path"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
