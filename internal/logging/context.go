package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const collectionKey contextKey = iota

// WithCollection records the collection id on ctx.
func WithCollection(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, collectionKey, id)
}

// CollectionFromContext returns the collection id stored by WithCollection.
func CollectionFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(collectionKey).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := CollectionFromContext(ctx); ok {
		return logger.With(slog.String(FieldCollectionID, id))
	}
	return logger
}
