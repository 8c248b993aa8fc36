// Package cache is a small key/value cache for read-mostly catalog data.
// Values are stored as JSON so every backend behaves the same way.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache miss")

type Cache interface {
	// Get decodes the cached value into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(ctx context.Context, key string, dest any) error {
	return ErrMiss
}

func (Nop) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

func (Nop) Delete(ctx context.Context, keys ...string) error {
	return nil
}
