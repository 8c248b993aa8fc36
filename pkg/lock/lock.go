// Package lock serializes work on a key, such as all bookings for one show.
package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when the lock could not be taken before the wait bound.
var ErrTimeout = errors.New("lock wait timed out")

type Locker interface {
	// Acquire blocks until key is held or the wait bound passes. The returned
	// func releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
