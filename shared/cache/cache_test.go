package cache_test

import (
	"context"
	"errors"
	"lodge/infras/otel/mocks"
	"lodge/shared/cache"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRoom struct {
	Key      string `json:"key"`
	Capacity int    `json:"capacity"`
}

func setupCache(t *testing.T) (cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return cache.NewRedisCache(client, mocks.NewOtel()), server
}

func TestSaveAndGet(t *testing.T) {
	redisCache, server := setupCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Save(ctx, "room:R-101", cachedRoom{Key: "R-101", Capacity: 4}, 60))

	var got cachedRoom
	require.NoError(t, redisCache.Get(ctx, "room:R-101", &got))
	assert.Equal(t, cachedRoom{Key: "R-101", Capacity: 4}, got)

	server.FastForward(61 * time.Second)

	err := redisCache.Get(ctx, "room:R-101", &got)
	assert.True(t, errors.Is(err, cache.Nil))
}

func TestGetString(t *testing.T) {
	redisCache, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Save(ctx, "plain", "value", 60))

	var got string
	require.NoError(t, redisCache.Get(ctx, "plain", &got))
	assert.Equal(t, "value", got)
}

func TestDeleteAndClear(t *testing.T) {
	redisCache, server := setupCache(t)
	ctx := context.Background()

	for _, key := range []string{"rooms:a", "rooms:b", "room:R-101", "booking:BK-1"} {
		require.NoError(t, redisCache.Save(ctx, key, "x", 60))
	}

	require.NoError(t, redisCache.Delete(ctx, "booking:BK-1"))
	assert.False(t, server.Exists("booking:BK-1"))

	require.NoError(t, redisCache.Clear(ctx, "rooms:*"))
	assert.False(t, server.Exists("rooms:a"))
	assert.False(t, server.Exists("rooms:b"))
	assert.True(t, server.Exists("room:R-101"))
}

func TestIncr(t *testing.T) {
	redisCache, server := setupCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := redisCache.Incr(ctx, "limiter:1.1.1.1", 30)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, 30*time.Second, server.TTL("limiter:1.1.1.1"))

	server.FastForward(31 * time.Second)

	got, err := redisCache.Incr(ctx, "limiter:1.1.1.1", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestGet_BadPayload(t *testing.T) {
	redisCache, server := setupCache(t)

	require.NoError(t, server.Set("room:broken", "{not json"))

	var got cachedRoom
	err := redisCache.Get(context.Background(), "room:broken", &got)
	require.Error(t, err)
	assert.False(t, errors.Is(err, cache.Nil))
}
