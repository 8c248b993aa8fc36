package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type localEntry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker holds per-key locks in process memory. Entries are removed once
// nobody holds or waits on them.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		entries: make(map[string]*localEntry),
		wait:    wait,
	}
}

// Acquire waits at most the configured bound. A bound of zero or less makes
// a single attempt.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if l.wait <= 0 {
		select {
		case e.sem <- struct{}{}:
			return l.releaser(key, e), nil
		default:
			l.unref(key, e)
			return nil, fmt.Errorf("acquire %s: %w", key, ErrTimeout)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case e.sem <- struct{}{}:
		return l.releaser(key, e), nil
	case <-ctx.Done():
		l.unref(key, e)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("acquire %s: %w", key, ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) releaser(key string, e *localEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(key, e)
		})
	}
}

func (l *LocalLocker) unref(key string, e *localEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
