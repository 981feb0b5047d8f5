package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// teeHandler writes each record to every sink whose level admits it. In
// practice the sinks are the console and the JSON log file.
type teeHandler struct {
	sinks []slog.Handler
}

// TeeHandler combines sinks. Nil sinks are dropped, a single sink is returned
// as is, and no sinks yields a handler that discards everything.
func TeeHandler(sinks ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return kept[0]
	}
	return &teeHandler{sinks: kept}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(t.sinks, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

// Handle gives each sink its own copy of the record. A failing sink does not
// keep the record from the others; all sink errors are returned joined.
func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range t.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		next[i] = fn(sink)
	}
	return &teeHandler{sinks: next}
}
