// Package dblog persists structured log records to the "Log" table, falling
// back to a plain stderr handler when the database is unreachable. A failed
// write never propagates to the caller.
package dblog

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Inserter is the single store method the handler needs.
type Inserter interface {
	InsertLog(ctx context.Context, level, message, metadata string) error
}

type Handler struct {
	inserter Inserter
	fallback slog.Handler
	level    slog.Leveler
	attrs    []slog.Attr
	group    string
}

func New(inserter Inserter, fallback slog.Handler, level slog.Leveler) *Handler {
	return &Handler{
		inserter: inserter,
		fallback: fallback,
		level:    level,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	metadata := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		metadata[a.Key] = a.Value.Resolve().String()
	}
	r.Attrs(func(a slog.Attr) bool {
		metadata[h.key(a.Key)] = a.Value.Resolve().String()
		return true
	})

	encoded, err := json.Marshal(metadata)
	if err != nil {
		encoded = []byte("{}")
	}

	if err := h.inserter.InsertLog(ctx, levelName(r.Level), r.Message, string(encoded)); err != nil {
		return h.fallback.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fallback = h.fallback.WithAttrs(attrs)
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.key(a.Key)
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.fallback = h.fallback.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *Handler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
