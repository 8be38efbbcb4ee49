package lock

import (
	"context"
	"errors"
	"fmt"
	"lodge/infras/otel"
	"lodge/shared/failure"
	"sync"
	"time"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goRedis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *goRedis.Client
	otel   otel.Otel
	ttl    time.Duration
	wait   time.Duration
}

func NewRedis(client *goRedis.Client, ttl, wait time.Duration, otl otel.Otel) Locker {
	return &redisLocker{
		client: client,
		otel:   otl,
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (release Release, err error) {
	ctx, scope := newScope(ctx, l.otel, "redis.Acquire", key)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	redisKey := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			log.Error().Err(err).Str("key", redisKey).Msg("failed to acquire room lock")

			return nil, fmt.Errorf("failed to acquire room lock: %w", err)
		}

		if ok {
			return l.release(redisKey, token), nil
		}

		if !time.Now().Add(retryInterval).Before(deadline) {
			log.Warn().Str("key", redisKey).Dur("wait", l.wait).Msg("room lock wait exhausted")

			return nil, failure.ErrRoomBusy
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire room lock: %w", ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

func (l *redisLocker) release(redisKey, token string) Release {
	var once sync.Once

	return func() {
		once.Do(func() {
			// the caller's context may already be gone when the work finishes
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
			defer cancel()

			err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
			if err != nil && !errors.Is(err, goRedis.Nil) {
				log.Error().Err(err).Str("key", redisKey).Msg("failed to release room lock")
			}
		})
	}
}
