package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lodge/config"
	"lodge/infras/jwt"
	"lodge/infras/metrics"
	"lodge/infras/otel/mocks"
	bookingMocks "lodge/internal/domains/booking/service/mocks"
	paymentMocks "lodge/internal/domains/payment/service/mocks"
	reservationMocks "lodge/internal/domains/reservation/service/mocks"
	roomDto "lodge/internal/domains/room/model/dto"
	roomMocks "lodge/internal/domains/room/service/mocks"
	"lodge/internal/handlers/booking"
	"lodge/internal/handlers/payment"
	"lodge/internal/handlers/room"
	"lodge/permissions"
	"lodge/shared/constant"
	"lodge/transport/http/middleware"
	"lodge/transport/http/router"
)

type stack struct {
	server *HTTP
	rooms  *roomMocks.MockRoom
	cfg    *config.Config
}

func newStack(t *testing.T) stack {
	t.Helper()

	ctrl := gomock.NewController(t)
	ot := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.App.Name = "lodge"
	cfg.App.APIKey = "internal-key"
	cfg.JWT.AccessSecret = "secret"
	cfg.JWT.AccessExpireMin = 15

	rooms := roomMocks.NewMockRoom(ctrl)
	reservations := reservationMocks.NewMockReservation(ctrl)

	r := router.New(router.DomainHandlers{
		Room:    room.New(rooms, reservations, ot),
		Booking: booking.New(bookingMocks.NewMockBooking(ctrl), ot),
		Payment: payment.New(paymentMocks.NewMockPayment(ctrl), ot),
	}, middleware.NewAuthRoleMiddleware(jwt.New(cfg), ot, permissions.Get(), cfg))

	m := metrics.New(cfg)

	server := New(cfg, r, middleware.NewAppMiddleware(ot, m, cfg, nil), m)
	server.setup()

	return stack{server: server, rooms: rooms, cfg: cfg}
}

func (s stack) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)

	return rec
}

func TestHTTP_Health(t *testing.T) {
	s := newStack(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	s.server.setState(ServerStateInGracePeriod)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), constant.ResponseErrorPrepareShutdown)
}

func TestHTTP_Metrics(t *testing.T) {
	s := newStack(t)

	s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lodge_http_request_duration_seconds")
}

func TestHTTP_RoutePermissions(t *testing.T) {
	t.Run("public room listing needs no token", func(t *testing.T) {
		s := newStack(t)
		s.rooms.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(roomDto.GetRoomsResponse{}, nil)

		rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("adding a room needs a token", func(t *testing.T) {
		s := newStack(t)

		rec := s.do(httptest.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("adding a room needs the admin role", func(t *testing.T) {
		s := newStack(t)

		signed, err := jwt.New(s.cfg).Generate("user-1", "kusal@example.com", constant.RoleCustomer)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(`{}`))
		req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+signed)

		rec := s.do(req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("room lookup by key is public", func(t *testing.T) {
		s := newStack(t)
		s.rooms.EXPECT().Get(gomock.Any(), "suite-1").Return(roomDto.RoomResponse{Key: "suite-1"}, nil)

		rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/rooms/suite-1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("payment callback rejects customers", func(t *testing.T) {
		s := newStack(t)

		signed, err := jwt.New(s.cfg).Generate("user-1", "kusal@example.com", constant.RoleCustomer)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader(`{}`))
		req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+signed)

		assert.Equal(t, http.StatusForbidden, s.do(req).Code)
	})
}
