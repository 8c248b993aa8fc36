package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoader_ReadThrough(t *testing.T) {
	ctx := context.Background()
	l := NewLoader[movie](NewMemoryCache(), time.Minute, zap.NewNop())

	var calls int32
	fetch := func(ctx context.Context) (movie, bool, error) {
		atomic.AddInt32(&calls, 1)
		return movie{ID: "1", Name: "Inception"}, true, nil
	}

	got, found, err := l.Get(ctx, "movie:1", fetch)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Inception", got.Name)

	got, found, err = l.Get(ctx, "movie:1", fetch)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Inception", got.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	l.Invalidate(ctx, "movie:1")
	_, _, err = l.Get(ctx, "movie:1", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLoader_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	l := NewLoader[movie](NewMemoryCache(), time.Minute, zap.NewNop())

	var calls int32
	fetch := func(ctx context.Context) (movie, bool, error) {
		atomic.AddInt32(&calls, 1)
		return movie{}, false, nil
	}

	for i := 0; i < 2; i++ {
		_, found, err := l.Get(ctx, "movie:404", fetch)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLoader_FetchError(t *testing.T) {
	l := NewLoader[movie](Nop{}, time.Minute, zap.NewNop())
	boom := errors.New("db down")

	_, found, err := l.Get(context.Background(), "movie:1", func(ctx context.Context) (movie, bool, error) {
		return movie{}, false, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, found)
}

func TestLoader_ConcurrentMissesShareFetch(t *testing.T) {
	ctx := context.Background()
	l := NewLoader[movie](Nop{}, time.Minute, zap.NewNop())

	var calls int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (movie, bool, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return movie{ID: "1", Name: "Inception"}, true, nil
	}

	const n = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			got, found, err := l.Get(ctx, "movie:1", fetch)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "Inception", got.Name)
		}()
	}
	started.Wait()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(n))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string, dest any) error {
	return errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}

func TestLoader_CacheFailureFallsBackToFetch(t *testing.T) {
	ctx := context.Background()
	l := NewLoader[movie](brokenCache{}, time.Minute, zap.NewNop())

	got, found, err := l.Get(ctx, "movie:1", func(ctx context.Context) (movie, bool, error) {
		return movie{ID: "1", Name: "Inception"}, true, nil
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Inception", got.Name)

	l.Invalidate(ctx, "movie:1")
}
