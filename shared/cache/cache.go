package cache

//go:generate go run go.uber.org/mock/mockgen -source=./cache.go -destination=./mocks/cache_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lodge/infras/otel"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	otelScopeName         = "cache"
	otelCacheKeyAttribute = "cache.key"
	scanBatch             = 100
	Nil                   = redis.Nil
)

type RedisCache interface {
	Save(ctx context.Context, key string, value any, duration int) error
	// Get decodes the cached value into value. A miss is an error wrapping Nil.
	Get(ctx context.Context, key string, value any) error
	// Incr bumps a counter and starts its window on the first hit.
	Incr(ctx context.Context, key string, window int) (int64, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
}

type redisCache struct {
	client *redis.Client
	otel   otel.Otel
}

func NewRedisCache(client *redis.Client, ot otel.Otel) RedisCache {
	return &redisCache{
		client: client,
		otel:   ot,
	}
}

func (c *redisCache) scope(ctx context.Context, op, key string) (context.Context, otel.Scope) {
	ctx, scope := c.otel.NewScope(ctx, otelScopeName, otelScopeName+"."+op)
	scope.SetAttribute(otelCacheKeyAttribute, key)

	return ctx, scope
}

func (c *redisCache) Clear(ctx context.Context, pattern string) error {
	ctx, scope := c.scope(ctx, "Clear", pattern)
	defer scope.End()

	deleted := 0

	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.client.Del(ctx, key).Err(); err != nil {
			scope.TraceError(err)
			log.Error().Err(err).Str("key", key).Msg("failed to clear cache key")

			return fmt.Errorf("failed to delete cache value: %w", err)
		}

		deleted++
	}

	if err := iter.Err(); err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	log.Debug().Str("pattern", pattern).Int("deleted", deleted).Msg("cache cleared")

	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	ctx, scope := c.scope(ctx, "Delete", key)
	defer scope.End()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("key", key).Msg("failed to delete cache key")

		return fmt.Errorf("failed to delete cache value: %w", err)
	}

	return nil
}

func (c *redisCache) Get(ctx context.Context, key string, value any) error {
	ctx, scope := c.scope(ctx, "Get", key)
	defer scope.End()

	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// a miss is not worth a span error
		scope.SetAttribute("cache.hit", false)

		return fmt.Errorf("failed to get cache value: %w", err)
	}

	scope.SetAttribute("cache.hit", true)

	if target, ok := value.(*string); ok {
		*target = raw

		return nil
	}

	if err := json.Unmarshal([]byte(raw), value); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("key", key).Msg("failed to decode cached value")

		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return nil
}

func (c *redisCache) Incr(ctx context.Context, key string, window int) (int64, error) {
	ctx, scope := c.scope(ctx, "Incr", key)
	defer scope.End()

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to increment cache counter: %w", err)
	}

	if count == 1 {
		if err := c.client.Expire(ctx, key, time.Duration(window)*time.Second).Err(); err != nil {
			scope.TraceError(err)

			return count, fmt.Errorf("failed to start counter window: %w", err)
		}
	}

	return count, nil
}

func (c *redisCache) Save(ctx context.Context, key string, value any, duration int) error {
	ctx, scope := c.scope(ctx, "Save", key)
	defer scope.End()

	var payload []byte

	if text, ok := value.(string); ok {
		payload = []byte(text)
	} else {
		encoded, err := json.Marshal(value)
		if err != nil {
			scope.TraceError(err)
			log.Error().Err(err).Str("key", key).Msg("failed to encode cache value")

			return fmt.Errorf("failed to marshal cache value: %w", err)
		}

		payload = encoded
	}

	if err := c.client.Set(ctx, key, payload, time.Duration(duration)*time.Second).Err(); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("key", key).Msg("failed to set cache value")

		return fmt.Errorf("failed to set cache value: %w", err)
	}

	log.Debug().Str("key", key).Int("ttlSeconds", duration).Msg("cache value saved")

	return nil
}
