package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes that change while the host runs, such
// as the match id and whether the match has ended. It is called once per
// emitted record.
type ContextProvider func() []slog.Attr

// ContextHandler appends the provider's attributes to every record that
// reaches the wrapped handler. Records filtered out by level never call the
// provider.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
}

func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.next.Handle(ctx, r)
	}
	for _, a := range h.provider() {
		if a.Key == "" {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.wrap(h.next.WithAttrs(attrs))
}

// WithGroup nests the record's own attributes; provider attributes land in
// the same group because they are added per record.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.wrap(h.next.WithGroup(name))
}

func (h *ContextHandler) wrap(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next, provider: h.provider}
}
