package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"diaryassistant/internal/fileutil"
	"diaryassistant/internal/logging"
	"diaryassistant/internal/services"
	"diaryassistant/internal/services/llm"
	"diaryassistant/internal/textutil"
)

const fileTimestampLayout = "20060102_150405"

var banner = strings.Repeat("=", 40)

// transcriptName builds <timestamp>_<task>_<request id>.txt.
func transcriptName(ts time.Time, task, requestID string) string {
	return fmt.Sprintf("%s_%s_%s.txt", ts.Format(fileTimestampLayout), textutil.FileToken(task, "request"), textutil.FileToken(requestID, "unknown"))
}

func writeMessages(b *strings.Builder, messages []llm.Message) {
	b.WriteString("\n" + banner + " REQUEST " + banner + "\n")
	for _, msg := range messages {
		fmt.Fprintf(b, "\n[%s]\n%s\n%s\n", strings.ToUpper(string(msg.Role)), strings.Repeat("-", 20), msg.Content)
	}
}

// writeDiagnostics dumps a failed request. It returns the file path, or an
// empty string when diagnostics are disabled or the write failed.
func (p *Pipeline) writeDiagnostics(ctx context.Context, r request, result Result, start time.Time) string {
	dir := strings.TrimSpace(p.cfg.DiagnosticsDir)
	if dir == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %s\n", p.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Task: %s\n", r.task)
	fmt.Fprintf(&b, "Request: %s\n", r.id)
	if runID, ok := services.RunIDFromContext(ctx); ok {
		fmt.Fprintf(&b, "Run: %s\n", runID)
	}
	fmt.Fprintf(&b, "Model: %s\n", r.req.Model)
	fmt.Fprintf(&b, "Temperature: %g\n", r.req.Temperature)
	fmt.Fprintf(&b, "Max Tokens: %d\n", r.req.MaxTokens)
	fmt.Fprintf(&b, "Attempts: %d/%d\n", result.Attempts, r.maxAttempts)
	fmt.Fprintf(&b, "Elapsed: %s\n", result.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Prompt: %d chars, ~%d tokens\n", r.promptChars, r.promptTokens)
	fmt.Fprintf(&b, "Error Class: %s\n", llm.Classify(result.Err))
	if status := llm.StatusCode(result.Err); status > 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", status)
	}
	fmt.Fprintf(&b, "Error: %v\n", result.Err)
	writeMessages(&b, r.req.Messages)

	path := filepath.Join(dir, transcriptName(start, r.task, r.id))
	if err := writeTranscript(path, b.String()); err != nil {
		logging.WarnWithContext(r.logger, "diagnostics write failed", "diagnostics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.diagnostics_dir permissions"),
			logging.String(logging.FieldImpact, "failed request payload not saved"),
		)
		return ""
	}
	return path
}

// writeInteraction saves a successful exchange when interaction logging is enabled.
func (p *Pipeline) writeInteraction(r request, resp llm.Response, start time.Time) string {
	dir := strings.TrimSpace(p.cfg.InteractionDir)
	if dir == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %s\n", p.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Task: %s\nModel: %s\n", r.task, firstNonEmpty(resp.Model, r.req.Model))
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		fmt.Fprintf(&b, "Tokens: %d + %d\n", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	writeMessages(&b, r.req.Messages)
	b.WriteString("\n" + banner + " RESPONSE " + banner + "\n\n")
	b.WriteString(resp.Content)
	b.WriteString("\n")

	path := filepath.Join(dir, transcriptName(start, r.task, r.id))
	if err := writeTranscript(path, b.String()); err != nil {
		logging.WarnWithContext(r.logger, "interaction log write failed", "interaction_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.log_dir permissions"),
			logging.String(logging.FieldImpact, "request transcript not saved"),
		)
		return ""
	}
	return path
}

func writeTranscript(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	return fileutil.WriteFileAtomic(path, []byte(content), 0o644)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
