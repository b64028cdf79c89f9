package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"shelfsync/internal/cache"
)

// FromEnv picks a backend: Postgres when SHELFSYNC_POSTGRES_DSN is set,
// otherwise a blob store over whatever cache.MakeCache selects.
func FromEnv(ctx context.Context) (Store, error) {
	if dsn, ok := os.LookupEnv("SHELFSYNC_POSTGRES_DSN"); ok {
		slog.Info("using Postgres for the entity store")
		pg, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		if err := pg.Bootstrap(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap postgres store: %w", err)
		}
		return pg, nil
	}

	c, err := cache.MakeCache()
	if err != nil {
		return nil, err
	}
	return NewBlobStore(c), nil
}
