package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader reads through a Cache. Concurrent misses for the same key share a
// single call to the fetch function.
type Loader[T any] struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
	log   *zap.Logger
}

type loaded[T any] struct {
	value T
	found bool
}

func NewLoader[T any](c Cache, ttl time.Duration, log *zap.Logger) *Loader[T] {
	return &Loader[T]{cache: c, ttl: ttl, log: log}
}

// Get returns the cached value for key or fetches and stores it. A fetch that
// returns found=false is not cached. Cache errors are logged and otherwise ignored.
func (l *Loader[T]) Get(ctx context.Context, key string, fetch func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	var cached T
	err := l.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, true, nil
	}
	if !errors.Is(err, ErrMiss) {
		l.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		value, found, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			if err := l.cache.Set(ctx, key, value, l.ttl); err != nil {
				l.log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return loaded[T]{value: value, found: found}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	r := v.(loaded[T])
	return r.value, r.found, nil
}

func (l *Loader[T]) Invalidate(ctx context.Context, keys ...string) {
	for _, k := range keys {
		l.group.Forget(k)
	}
	if err := l.cache.Delete(ctx, keys...); err != nil {
		l.log.Warn("Cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
