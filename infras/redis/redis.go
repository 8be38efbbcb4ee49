package redis

import (
	"context"
	"lodge/config"
	"net"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// New connects to the primary redis used by the cache, the rate limiter and the room locks.
func New(config *config.Config) *goRedis.Client {
	primary := config.Cache.Redis.Primary

	client := goRedis.NewClient(&goRedis.Options{
		Addr:     net.JoinHostPort(primary.Host, primary.Port),
		Password: primary.Password,
		DB:       primary.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	log.Info().
		Int("db", primary.DB).
		Str("host", primary.Host).
		Str("port", primary.Port).
		Msg("Connected to Redis")

	return client
}
