package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	prefix := "test-" + uuid.NewString()
	c := NewRedisCache(client, prefix)

	var got movie
	require.ErrorIs(t, c.Get(ctx, "movie:1", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "movie:1", movie{ID: "1", Name: "Inception"}, time.Minute))
	require.NoError(t, c.Get(ctx, "movie:1", &got))
	assert.Equal(t, "Inception", got.Name)

	ttl, err := client.TTL(ctx, prefix+":movie:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "movie:1"))
	require.ErrorIs(t, c.Get(ctx, "movie:1", &got), ErrMiss)
	require.NoError(t, c.Delete(ctx))
}
