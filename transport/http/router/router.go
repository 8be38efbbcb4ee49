package router

import (
	"lodge/internal/handlers/booking"
	"lodge/internal/handlers/payment"
	"lodge/internal/handlers/room"
	"lodge/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Room    room.Handler
	Booking booking.Handler
	Payment payment.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	AuthRole       middleware.AuthRole
}

// SetupRoutes mounts every versioned route behind API key, token and role checks.
func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		routerGroup.Use(r.AuthRole.APIKey, r.AuthRole.Auth, r.AuthRole.RBAC)

		r.DomainHandlers.Room.Router(routerGroup)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers, authRole middleware.AuthRole) Router {
	return Router{
		DomainHandlers: domainHandlers,
		AuthRole:       authRole,
	}
}
