package correlation

import (
	"context"

	"github.com/google/uuid"
)

type key int

const (
	RunKey key = iota
	CollectionKey
)

// NewRunID returns a fresh identifier for one sync run.
func NewRunID() string {
	return uuid.New().String()
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunKey, id)
}

func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunKey).(string); ok {
		return id
	}
	return "unknown"
}

// WithCollection tags ctx with the logical collection currently being synced.
func WithCollection(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, CollectionKey, name)
}

func GetCollection(ctx context.Context) string {
	if name, ok := ctx.Value(CollectionKey).(string); ok {
		return name
	}
	return ""
}
