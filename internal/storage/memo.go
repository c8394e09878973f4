package storage

import (
	"context"
	"errors"
	"fmt"
)

// Memo returns the cached result of name(args) or computes and stores it.
// A nil store always computes. Records written by an older codec are
// recomputed and overwritten.
func Memo[T any](ctx context.Context, store Store, name string, args any, compute func(context.Context) (T, error)) (T, error) {
	if store == nil {
		return compute(ctx)
	}

	var zero T
	key, err := Key(name, args)
	if err != nil {
		return zero, err
	}

	record, ok, err := store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrVersionMismatch) {
		return zero, fmt.Errorf("cache get %s: %w", name, err)
	}
	if ok {
		var cached T
		err := DecodeValue(record, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrVersionMismatch) {
			return zero, fmt.Errorf("decode cached %s: %w", name, err)
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	record, err = NewRecord(key, name, value)
	if err != nil {
		return zero, err
	}
	if err := store.Put(ctx, record); err != nil {
		return zero, fmt.Errorf("cache put %s: %w", name, err)
	}
	return value, nil
}
