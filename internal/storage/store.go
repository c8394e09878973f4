package storage

import (
	"context"

	"banditlab/internal/model"
)

// Store persists memoized results keyed by call hash.
type Store interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (model.CacheRecord, bool, error)
	Put(ctx context.Context, record model.CacheRecord) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
