package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	documentIDKey ctxKey = iota
	stepPathKey
)

// WithDocumentID returns a context with the document ID set.
func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, documentIDKey, id)
}

// WithStepPath returns a context with the structural step path set.
func WithStepPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, stepPathKey, path)
}

// DocumentID extracts the document ID from the context, or "" if absent.
func DocumentID(ctx context.Context) string {
	v, _ := ctx.Value(documentIDKey).(string)
	return v
}

// StepPath extracts the step path from the context, or "" if absent.
func StepPath(ctx context.Context) string {
	v, _ := ctx.Value(stepPathKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := DocumentID(ctx); id != "" {
		logger = logger.With(slog.String("document_id", id))
	}
	if p := StepPath(ctx); p != "" {
		logger = logger.With(slog.String("step_path", p))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := DocumentID(ctx); v != "" {
		r.AddAttrs(slog.String("document_id", v))
	}
	if v := StepPath(ctx); v != "" {
		r.AddAttrs(slog.String("step_path", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
