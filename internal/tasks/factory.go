package tasks

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise a JSON
// file store at path. An empty path falls back to in-memory.
func NewStore(ctx context.Context, databaseURL, path string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	if strings.TrimSpace(path) == "" {
		return NewInMemoryStore(), nil
	}
	return NewFileStore(path), nil
}
