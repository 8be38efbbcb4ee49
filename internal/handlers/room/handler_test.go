package room_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lodge/infras/otel/mocks"
	reservationDto "lodge/internal/domains/reservation/model/dto"
	reservationMocks "lodge/internal/domains/reservation/service/mocks"
	"lodge/internal/domains/room/model/dto"
	roomMocks "lodge/internal/domains/room/service/mocks"
	"lodge/internal/handlers/room"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
)

type fixture struct {
	rooms        *roomMocks.MockRoom
	reservations *reservationMocks.MockReservation
	otel         *mocks.Otel
	router       chi.Router
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)

	f := fixture{
		rooms:        roomMocks.NewMockRoom(ctrl),
		reservations: reservationMocks.NewMockReservation(ctrl),
		otel:         &mocks.Otel{},
		router:       chi.NewRouter(),
	}

	handler := room.New(f.rooms, f.reservations, f.otel)
	handler.Router(f.router)

	return f
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestRoomHandler_GetRooms(t *testing.T) {
	f := newFixture(t)

	f.rooms.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error) {
			assert.Equal(t, 2, params.Page)
			assert.Len(t, filter.Filters, 2)

			return dto.GetRoomsResponse{Rooms: []dto.RoomResponse{{Key: "suite-1"}}, TotalData: 1, TotalPage: 1}, nil
		})

	rec := f.do(http.MethodGet, "/rooms?page=2&hotelName=sea&roomType=Suite", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "data")
}

func TestRoomHandler_SearchRooms(t *testing.T) {
	t.Run("passes query through", func(t *testing.T) {
		f := newFixture(t)

		f.reservations.EXPECT().Search(gomock.Any(), reservationDto.SearchRequest{
			CheckIn:    "2024-06-03",
			CheckOut:   "2024-06-04",
			HotelName:  "sea",
			Facilities: []string{"wifi", "ac"},
		}).Return([]dto.RoomResponse{}, nil)

		rec := f.do(http.MethodGet, "/rooms/search?checkIn=2024-06-03&checkOut=2024-06-04&hotelName=sea&facilities=wifi,%20ac,", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad room type never reaches the service", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/rooms/search?checkIn=2024-06-03&checkOut=2024-06-04&roomType=Penthouse", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service rejection", func(t *testing.T) {
		f := newFixture(t)

		f.reservations.EXPECT().Search(gomock.Any(), gomock.Any()).
			Return(nil, failure.BadRequestFromString("Check-in and check-out dates are required"))

		rec := f.do(http.MethodGet, "/rooms/search", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Check-in and check-out dates are required", decode(t, rec)["error"])
	})
}

func TestRoomHandler_BookRoom(t *testing.T) {
	body := `{"checkInDate":"2024-06-01","checkOutDate":"2024-06-03","numberOfGuests":2}`

	t.Run("returns booking details", func(t *testing.T) {
		f := newFixture(t)

		f.reservations.EXPECT().PlaceHold(gomock.Any(), "suite-1", reservationDto.PlaceHoldRequest{
			CheckInDate:    "2024-06-01",
			CheckOutDate:   "2024-06-03",
			NumberOfGuests: 2,
		}).Return(reservationDto.PlaceHoldResponse{
			Message:        reservationDto.MsgHoldPlaced,
			BookingDetails: reservationDto.BookingDetails{RoomKey: "suite-1", TotalAmount: 200},
		}, nil)

		rec := f.do(http.MethodPost, "/rooms/suite-1/book", body)

		require.Equal(t, http.StatusOK, rec.Code)

		data, _ := decode(t, rec)["data"].(map[string]any)
		assert.Equal(t, reservationDto.MsgHoldPlaced, data["message"])
	})

	t.Run("room missing", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().PlaceHold(gomock.Any(), "nope", gomock.Any()).
			Return(reservationDto.PlaceHoldResponse{}, failure.ErrRoomNotFound)

		rec := f.do(http.MethodPost, "/rooms/nope/book", body)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Room not found", decode(t, rec)["error"])
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().PlaceHold(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(reservationDto.PlaceHoldResponse{}, errors.New("pq: connection refused"))

		rec := f.do(http.MethodPost, "/rooms/suite-1/book", body)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, http.StatusText(http.StatusInternalServerError), decode(t, rec)["error"])

		scope, ok := f.otel.Scope("handler.BookRoom")
		require.True(t, ok)
		assert.True(t, scope.Ended)
		require.Len(t, scope.Errors, 1)
		assert.EqualError(t, scope.Errors[0], "pq: connection refused")
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/rooms/suite-1/book", `{"numberOfGuests":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRoomHandler_ConfirmAndCancelBooking(t *testing.T) {
	t.Run("confirm", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().ConfirmHold(gomock.Any(), reservationDto.ConfirmHoldRequest{
			RoomKey:      "suite-1",
			CheckInDate:  "2024-06-01",
			CheckOutDate: "2024-06-03",
			BookingID:    "BK-1",
		}).Return(nil)

		rec := f.do(http.MethodPost, "/rooms/confirm-booking",
			`{"roomKey":"suite-1","checkInDate":"2024-06-01","checkOutDate":"2024-06-03","bookingId":"BK-1"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, reservationDto.MsgHoldConfirmed, decode(t, rec)["message"])
	})

	t.Run("confirm without room key", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/rooms/confirm-booking", `{"checkInDate":"2024-06-01","checkOutDate":"2024-06-03"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cancel with no pending hold", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().CancelHold(gomock.Any(), gomock.Any()).Return(failure.ErrHoldNotFound)

		rec := f.do(http.MethodPost, "/rooms/cancel-booking",
			`{"roomKey":"suite-1","checkInDate":"2024-06-01","checkOutDate":"2024-06-03"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Pending booking not found", decode(t, rec)["error"])
	})
}

func TestRoomHandler_Admin(t *testing.T) {
	t.Run("create validates body", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/rooms", `{"hotelName":"Sea View","roomType":"Suite"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		f := newFixture(t)
		f.rooms.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req dto.CreateRoomRequest) error {
				assert.Equal(t, "suite-1", req.Key)
				assert.True(t, req.Facilities.Wifi)

				return nil
			})

		rec := f.do(http.MethodPost, "/rooms",
			`{"key":"suite-1","hotelName":"Sea View","roomType":"Suite","roomNumber":"101","price":100,"capacity":4,"facilities":{"wifi":true}}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("availability needs a field", func(t *testing.T) {
		f := newFixture(t)
		f.rooms.EXPECT().UpdateAvailability(gomock.Any(), dto.UpdateAvailabilityRequest{}, "suite-1").
			Return(failure.BadRequestFromString("No fields provided to update"))

		rec := f.do(http.MethodPut, "/rooms/suite-1/availability", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No fields provided to update", decode(t, rec)["error"])
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t)
		f.rooms.EXPECT().Delete(gomock.Any(), "suite-1").Return(nil)

		rec := f.do(http.MethodDelete, "/rooms/suite-1", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("hotel lookup", func(t *testing.T) {
		f := newFixture(t)
		f.rooms.EXPECT().GetByHotel(gomock.Any(), "Sea View", gomock.Any()).Return(dto.GetRoomsResponse{}, nil)

		rec := f.do(http.MethodGet, "/rooms/hotel/Sea%20View", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
