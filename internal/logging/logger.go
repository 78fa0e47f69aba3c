package logging

import (
	"context"
	"log/slog"
	"os"

	"gorm.io/gorm"
)

type ctxKey struct{}

// WithRequestID stores the request id so every record logged with ctx
// carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Setup installs the default JSON logger on stdout. Development runs log at
// debug level.
func Setup(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.SetDefault(logger)
	return logger
}

// AttachStore adds a DBHandler to the default logger so ERROR records are
// persisted. The returned handler must be stopped on shutdown.
func AttachStore(db *gorm.DB) *DBHandler {
	store := NewDBHandler(db, DefaultBatchSize, DefaultFlushInterval)
	logger := slog.New(NewMultiHandler(slog.Default().Handler(), NewContextHandler(store)))
	slog.SetDefault(logger)
	return store
}

// ContextHandler copies the request id from the context into the record.
type ContextHandler struct {
	next slog.Handler
}

func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := RequestID(ctx); id != "" {
		record = record.Clone()
		record.AddAttrs(slog.String("request_id", id))
	}
	return h.next.Handle(ctx, record)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
