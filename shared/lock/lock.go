package lock

//go:generate go run go.uber.org/mock/mockgen -source=./lock.go -destination=./mocks/lock_mock.go -package=mocks

import (
	"context"
	"lodge/config"
	"lodge/infras/otel"
	"lodge/shared/constant"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix     = "lock:room:"
	retryInterval = 25 * time.Millisecond
	otelAttrKey   = "lock.key"
)

// Release gives the lock back. Calling it more than once is harmless.
type Release func()

// Locker serializes work per key. Acquire waits at most the configured time and then
// fails with failure.ErrRoomBusy.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// New picks the driver from BOOKING_LOCK_DRIVER. The local driver only protects a single process.
func New(cfg *config.Config, client *goRedis.Client, otl otel.Otel) Locker {
	ttl := time.Duration(cfg.Booking.LockTTLSeconds) * time.Second
	wait := time.Duration(cfg.Booking.LockWaitMillis) * time.Millisecond

	if cfg.Booking.LockDriver == config.LockDriverLocal {
		log.Warn().Msg("Using in-process room locks, do not run more than one replica")

		return NewLocal(wait, otl)
	}

	return NewRedis(client, ttl, wait, otl)
}

func newScope(ctx context.Context, otl otel.Otel, method, key string) (context.Context, otel.Scope) {
	ctx, scope := otl.NewScope(ctx, constant.OtelLockScopeName, constant.OtelLockScopeName+"."+method)
	scope.SetAttribute(otelAttrKey, key)

	return ctx, scope
}
