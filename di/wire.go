//go:build wireinject
// +build wireinject

package di

import (
	"lodge/config"
	"lodge/infras/jwt"
	"lodge/infras/kafka"
	"lodge/infras/metrics"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/infras/redis"
	"lodge/infras/s3"
	"lodge/permissions"
	"lodge/shared/cache"
	"lodge/shared/event"
	"lodge/shared/lock"
	"lodge/transport/http"
	"lodge/transport/http/middleware"
	"lodge/transport/http/router"

	bookingRepository "lodge/internal/domains/booking/repository"
	bookingService "lodge/internal/domains/booking/service"
	paymentService "lodge/internal/domains/payment/service"
	reservationService "lodge/internal/domains/reservation/service"
	roomRepository "lodge/internal/domains/room/repository"
	roomService "lodge/internal/domains/room/service"
	userRepository "lodge/internal/domains/user/repository"
	userService "lodge/internal/domains/user/service"

	bookingHandler "lodge/internal/handlers/booking"
	paymentHandler "lodge/internal/handlers/payment"
	roomHandler "lodge/internal/handlers/room"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
	metrics.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	lock.New,
	event.NewPublisher,
)

var userDomain = wire.NewSet(
	userRepository.New,
	userService.New,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
	reservationService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
	paymentService.New,
)

var domains = wire.NewSet(
	userDomain,
	roomDomain,
	bookingDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	roomHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
