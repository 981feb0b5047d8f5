package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTeeHandlerSinkSelection(t *testing.T) {
	if h := TeeHandler(nil, nil); h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("no sinks should discard every record")
	}
	var buf bytes.Buffer
	file := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, file, nil); h != file {
		t.Fatalf("single sink should be returned unwrapped, got %T", h)
	}
}

func TestTeeHandlerRoutesByLevel(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(TeeHandler(
		slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("attempt payload", String(FieldTask, "daily_evaluation"))
	if console.Len() != 0 {
		t.Fatalf("console must not receive debug lines: %s", console.String())
	}
	if !strings.Contains(file.String(), "attempt payload") {
		t.Fatalf("file sink missing debug line: %s", file.String())
	}

	logger.Warn("retrying request")
	for name, buf := range map[string]*bytes.Buffer{"console": &console, "file": &file} {
		if !strings.Contains(buf.String(), "retrying request") {
			t.Fatalf("%s sink missing warning: %s", name, buf.String())
		}
	}
}

func TestTeeHandlerCarriesAttrsAndGroups(t *testing.T) {
	var console, file bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(&console, nil), slog.NewJSONHandler(&file, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldRunID, "run-1")}).WithGroup("usage"))

	logger.Info("request succeeded", Int("total_tokens", 13))
	for name, buf := range map[string]*bytes.Buffer{"console": &console, "file": &file} {
		out := buf.String()
		if !strings.Contains(out, `"run_id":"run-1"`) || !strings.Contains(out, `"usage":{"total_tokens":13}`) {
			t.Fatalf("%s sink lost attrs or group: %s", name, out)
		}
	}
}

func TestTeeHandlerContinuesPastFailingSink(t *testing.T) {
	var file bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(brokenWriter{}, nil), slog.NewJSONHandler(&file, nil))

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "diary evaluated", 0)
	err := h.Handle(context.Background(), record)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error, got %v", err)
	}
	if !strings.Contains(file.String(), "diary evaluated") {
		t.Fatalf("healthy sink missed the record: %s", file.String())
	}
}
