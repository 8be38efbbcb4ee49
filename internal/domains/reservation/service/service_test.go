package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	metricsMocks "lodge/infras/metrics/mocks"
	"lodge/infras/otel/mocks"
	"lodge/internal/domains/reservation/model/dto"
	"lodge/internal/domains/reservation/service"
	roomMocks "lodge/internal/domains/room/mocks"
	"lodge/internal/domains/room/model"
	"lodge/internal/domains/room/repository"
	userMocks "lodge/internal/domains/user/mocks"
	userModel "lodge/internal/domains/user/model"
	userService "lodge/internal/domains/user/service"
	cacheMocks "lodge/shared/cache/mocks"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/event"
	eventMocks "lodge/shared/event/mocks"
	"lodge/shared/failure"
	"lodge/shared/lock"
	lockMocks "lodge/shared/lock/mocks"
	"lodge/shared/timezone"
)

type fixture struct {
	repo      *roomMocks.MockRoom
	tx        *roomMocks.MockLedgerTx
	users     *userMocks.MockUser
	locker    *lockMocks.MockLocker
	publisher *eventMocks.MockPublisher
	otel      *mocks.Otel
	svc       service.Reservation
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)

	f := fixture{
		repo:      roomMocks.NewMockRoom(ctrl),
		tx:        roomMocks.NewMockLedgerTx(ctrl),
		users:     userMocks.NewMockUser(ctrl),
		locker:    lockMocks.NewMockLocker(ctrl),
		publisher: eventMocks.NewMockPublisher(ctrl),
		otel:      &mocks.Otel{},
	}

	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.users.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{
		ID:        "user-1",
		Email:     "kusal@example.com",
		FirstName: "Kusal",
		LastName:  "Perera",
		Phone:     "0771234567",
	}, true, nil).AnyTimes()

	f.svc = service.New(
		f.repo,
		userService.New(f.users, mocks.NewOtel()),
		f.locker,
		mockCache,
		f.publisher,
		metricsMocks.NewMetrics(),
		f.otel,
	)

	return f
}

func (f fixture) expectTx(room model.Room, found bool, entries []model.BookedDate) {
	f.locker.EXPECT().Acquire(gomock.Any(), gomock.Any()).Return(lock.Release(func() {}), nil)
	f.repo.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, repository.LedgerTx) error) error {
			return fn(ctx, f.tx)
		})
	f.tx.EXPECT().LockByKey(gomock.Any(), gomock.Any()).Return(room, found, nil)

	if found {
		f.tx.EXPECT().Entries(gomock.Any(), room.ID).Return(entries, nil)
	}
}

func customerCtx() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "user-1")
	ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, "kusal@example.com")

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleCustomer)
}

func systemCtx() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserRole, constant.RoleSystem)
}

func suiteRoom() model.Room {
	return model.Room{
		ID:           "room-1",
		Key:          "suite-1",
		HotelName:    "Seaside",
		RoomType:     model.RoomTypeSuite,
		RoomNumber:   "201",
		Price:        100,
		Capacity:     4,
		Availability: true,
		Status:       model.StatusAvailable,
		Version:      1,
	}
}

func TestReservationService_PlaceHoldRejections(t *testing.T) {
	valid := dto.PlaceHoldRequest{CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03", NumberOfGuests: 2}

	unavailable := suiteRoom()
	unavailable.Availability = false

	taken := []model.BookedDate{{
		ID:        "e1",
		StartDate: mustDate("2024-06-02"),
		EndDate:   mustDate("2024-06-04"),
		Status:    model.EntryConfirmed,
	}}

	tests := []struct {
		name      string
		ctx       context.Context
		req       dto.PlaceHoldRequest
		setupMock func(f fixture)
		wantCode  int
		wantMsg   string
	}{
		{
			name:     "anonymous caller",
			ctx:      context.Background(),
			req:      valid,
			wantCode: http.StatusUnauthorized,
			wantMsg:  "Please login and try again",
		},
		{
			name:     "missing guests",
			ctx:      customerCtx(),
			req:      dto.PlaceHoldRequest{CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Check-in date, check-out date, and number of guests are required",
		},
		{
			name:     "inverted dates",
			ctx:      customerCtx(),
			req:      dto.PlaceHoldRequest{CheckInDate: "2024-06-03", CheckOutDate: "2024-06-01", NumberOfGuests: 2},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Check-out date must be after check-in date",
		},
		{
			name:     "zero length stay",
			ctx:      customerCtx(),
			req:      dto.PlaceHoldRequest{CheckInDate: "2024-06-03", CheckOutDate: "2024-06-03", NumberOfGuests: 2},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Check-out date must be after check-in date",
		},
		{
			name:     "garbage date",
			ctx:      customerCtx(),
			req:      dto.PlaceHoldRequest{CheckInDate: "tomorrow", CheckOutDate: "2024-06-03", NumberOfGuests: 2},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid check-in or check-out date",
		},
		{
			name: "room not found",
			ctx:  customerCtx(),
			req:  valid,
			setupMock: func(f fixture) {
				f.expectTx(model.Room{}, false, nil)
			},
			wantCode: http.StatusNotFound,
			wantMsg:  "Room not found",
		},
		{
			name: "room switched off",
			ctx:  customerCtx(),
			req:  valid,
			setupMock: func(f fixture) {
				f.expectTx(unavailable, true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Room is not available",
		},
		{
			name: "dates taken",
			ctx:  customerCtx(),
			req:  valid,
			setupMock: func(f fixture) {
				f.expectTx(suiteRoom(), true, taken)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Room is not available for selected dates",
		},
		{
			name: "conflict reported before capacity",
			ctx:  customerCtx(),
			req:  dto.PlaceHoldRequest{CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03", NumberOfGuests: 9},
			setupMock: func(f fixture) {
				f.expectTx(suiteRoom(), true, taken)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Room is not available for selected dates",
		},
		{
			name: "five guests in a room for four",
			ctx:  customerCtx(),
			req:  dto.PlaceHoldRequest{CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03", NumberOfGuests: 5},
			setupMock: func(f fixture) {
				f.expectTx(suiteRoom(), true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Room capacity exceeded. Maximum 4 guests allowed",
		},
		{
			name: "room busy",
			ctx:  customerCtx(),
			req:  valid,
			setupMock: func(f fixture) {
				f.locker.EXPECT().Acquire(gomock.Any(), "suite-1").Return(nil, failure.ErrRoomBusy)
			},
			wantCode: http.StatusConflict,
			wantMsg:  "room is busy, please retry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			// AppendEntry, SaveState and Publish have no expectations: any call fails the test.
			_, err := f.svc.PlaceHold(tt.ctx, "suite-1", tt.req)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))
			assert.Equal(t, tt.wantMsg, failure.GetMessage(err))
		})
	}
}

func TestReservationService_PlaceHold(t *testing.T) {
	f := newFixture(t)
	f.expectTx(suiteRoom(), true, []model.BookedDate{{
		StartDate: mustDate("2024-06-03"),
		EndDate:   mustDate("2024-06-05"),
		Status:    model.EntryConfirmed,
	}})

	f.tx.EXPECT().AppendEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry model.BookedDate) error {
			assert.Equal(t, "room-1", entry.RoomID)
			assert.Equal(t, model.EntryPending, entry.Status)
			assert.Equal(t, mustDate("2024-06-01"), entry.StartDate)
			assert.Equal(t, mustDate("2024-06-03"), entry.EndDate)
			assert.Nil(t, entry.BookingID)

			return nil
		})
	f.tx.EXPECT().SaveState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, room model.Room) (model.Room, error) {
			assert.True(t, room.Availability)
			assert.Equal(t, "user-1", room.ModifiedBy)
			room.Version++

			return room, nil
		})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, evt event.Event) {
			assert.Equal(t, event.HoldPlaced, evt.Type)
			assert.Equal(t, "suite-1", evt.AggregateID)
		})

	res, err := f.svc.PlaceHold(customerCtx(), "suite-1", dto.PlaceHoldRequest{
		CheckInDate:    "2024-06-01",
		CheckOutDate:   "2024-06-03",
		NumberOfGuests: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, "Room selected. Proceed to payment.", res.Message)
	assert.Equal(t, 2, res.BookingDetails.NumberOfNights)
	assert.InDelta(t, 200.0, res.BookingDetails.TotalAmount, 0.001)
	assert.InDelta(t, 100.0, res.BookingDetails.PricePerNight, 0.001)
	assert.Equal(t, "Kusal Perera", res.BookingDetails.CustomerDetails.Name)
	assert.Equal(t, "user-1", res.BookingDetails.CustomerDetails.UserID)
	assert.Equal(t, "2024-06-01", res.BookingDetails.CheckInDate)
}

func TestReservationService_ConfirmHold(t *testing.T) {
	pending := model.BookedDate{
		ID:        "e1",
		RoomID:    "room-1",
		StartDate: mustDate("2024-06-01"),
		EndDate:   mustDate("2024-06-03"),
		Status:    model.EntryPending,
	}

	req := dto.ConfirmHoldRequest{
		RoomKey:      "suite-1",
		CheckInDate:  "2024-06-01T10:30:00Z",
		CheckOutDate: "2024-06-03",
		BookingID:    "BK-1",
		PaymentID:    "PAY-1",
	}

	t.Run("confirms the matching pending entry", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx(suiteRoom(), true, []model.BookedDate{pending})

		f.tx.EXPECT().UpdateEntry(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry model.BookedDate) error {
				assert.Equal(t, "e1", entry.ID)
				assert.Equal(t, model.EntryConfirmed, entry.Status)
				require.NotNil(t, entry.BookingID)
				assert.Equal(t, "BK-1", *entry.BookingID)
				require.NotNil(t, entry.PaymentID)
				assert.Equal(t, "PAY-1", *entry.PaymentID)
				assert.Equal(t, constant.SystemActorID, entry.ModifiedBy)

				return nil
			})
		f.tx.EXPECT().SaveState(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, room model.Room) (model.Room, error) {
				assert.False(t, room.Availability)
				assert.Equal(t, model.StatusBooked, room.Status)

				return room, nil
			})
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())

		require.NoError(t, f.svc.ConfirmHold(systemCtx(), req))
	})

	t.Run("no pending entry", func(t *testing.T) {
		f := newFixture(t)
		confirmed := pending
		confirmed.Status = model.EntryConfirmed
		f.expectTx(suiteRoom(), true, []model.BookedDate{confirmed})

		assert.ErrorIs(t, f.svc.ConfirmHold(systemCtx(), req), failure.ErrHoldNotFound)
	})

	t.Run("dates do not match", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx(suiteRoom(), true, []model.BookedDate{pending})

		other := req
		other.CheckOutDate = "2024-06-04"

		assert.ErrorIs(t, f.svc.ConfirmHold(systemCtx(), other), failure.ErrHoldNotFound)
	})

	t.Run("room missing", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx(model.Room{}, false, nil)

		assert.ErrorIs(t, f.svc.ConfirmHold(systemCtx(), req), failure.ErrRoomNotFound)
	})

	t.Run("stale version", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx(suiteRoom(), true, []model.BookedDate{pending})
		f.tx.EXPECT().UpdateEntry(gomock.Any(), gomock.Any()).Return(nil)
		f.tx.EXPECT().SaveState(gomock.Any(), gomock.Any()).Return(model.Room{}, failure.ErrStaleRoom)

		err := f.svc.ConfirmHold(systemCtx(), req)
		assert.ErrorIs(t, err, failure.ErrStaleRoom)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	})
}

func TestReservationService_CancelHold(t *testing.T) {
	f := newFixture(t)
	f.expectTx(suiteRoom(), true, []model.BookedDate{{
		ID:        "e1",
		StartDate: mustDate("2024-06-01"),
		EndDate:   mustDate("2024-06-03"),
		Status:    model.EntryPending,
	}})

	f.tx.EXPECT().UpdateEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry model.BookedDate) error {
			assert.Equal(t, model.EntryCancelled, entry.Status)

			return nil
		})
	f.tx.EXPECT().SaveState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, room model.Room) (model.Room, error) {
			assert.True(t, room.Availability)
			assert.Equal(t, model.StatusAvailable, room.Status)

			return room, nil
		})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())

	err := f.svc.CancelHold(systemCtx(), dto.CancelHoldRequest{RoomKey: "suite-1", CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03"})
	require.NoError(t, err)
}

func TestReservationService_CancelHoldUnknownRoom(t *testing.T) {
	f := newFixture(t)
	f.expectTx(model.Room{}, false, nil)

	err := f.svc.CancelHold(systemCtx(), dto.CancelHoldRequest{RoomKey: "missing", CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03"})
	assert.ErrorIs(t, err, failure.ErrRoomNotFound)
	assert.NotErrorIs(t, err, failure.ErrHoldNotFound)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestReservationService_SpansRecordFailures(t *testing.T) {
	t.Run("invalid check-in date", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.ConfirmHold(systemCtx(), dto.ConfirmHoldRequest{
			RoomKey:      "suite-1",
			CheckInDate:  "not-a-date",
			CheckOutDate: "2024-06-03",
			BookingID:    "BK-1",
		})
		require.Error(t, err)

		scope, ok := f.otel.Scope(constant.OtelServiceScopeName + ".reservation.ConfirmHold")
		require.True(t, ok)
		require.Len(t, scope.Errors, 1)
		assert.ErrorIs(t, scope.Errors[0], err)
		assert.True(t, scope.Ended)
	})

	t.Run("unknown room", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx(model.Room{}, false, nil)

		err := f.svc.CancelHold(systemCtx(), dto.CancelHoldRequest{RoomKey: "missing", CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03"})
		require.ErrorIs(t, err, failure.ErrRoomNotFound)

		scope, ok := f.otel.Scope(constant.OtelServiceScopeName + ".reservation.CancelHold")
		require.True(t, ok)
		require.Len(t, scope.Errors, 1)
		assert.ErrorIs(t, scope.Errors[0], failure.ErrRoomNotFound)
	})

	t.Run("success records nothing", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx(suiteRoom(), true, []model.BookedDate{{
			ID:        "e1",
			StartDate: mustDate("2024-06-01"),
			EndDate:   mustDate("2024-06-03"),
			Status:    model.EntryPending,
		}})
		f.tx.EXPECT().UpdateEntry(gomock.Any(), gomock.Any()).Return(nil)
		f.tx.EXPECT().SaveState(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, room model.Room) (model.Room, error) {
			return room, nil
		})
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())

		require.NoError(t, f.svc.CancelHold(systemCtx(), dto.CancelHoldRequest{RoomKey: "suite-1", CheckInDate: "2024-06-01", CheckOutDate: "2024-06-03"}))

		scope, ok := f.otel.Scope(constant.OtelServiceScopeName + ".reservation.CancelHold")
		require.True(t, ok)
		assert.Empty(t, scope.Errors)
	})
}

func TestReservationService_PlaceHoldAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	previous := timezone.SetLocation(loc)
	t.Cleanup(func() { timezone.SetLocation(previous) })

	f := newFixture(t)
	f.expectTx(suiteRoom(), true, nil)
	f.tx.EXPECT().AppendEntry(gomock.Any(), gomock.Any()).Return(nil)
	f.tx.EXPECT().SaveState(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, room model.Room) (model.Room, error) {
		return room, nil
	})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())

	res, err := f.svc.PlaceHold(customerCtx(), "suite-1", dto.PlaceHoldRequest{
		CheckInDate:    "2026-11-01",
		CheckOutDate:   "2026-11-03",
		NumberOfGuests: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.BookingDetails.NumberOfNights)
	assert.InDelta(t, 200.0, res.BookingDetails.TotalAmount, 0.001)
}

func TestReservationService_Search(t *testing.T) {
	t.Run("dates required", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Search(context.Background(), dto.SearchRequest{CheckIn: "2024-06-01"})
		require.Error(t, err)
		assert.Equal(t, "Check-in and check-out dates are required", failure.GetMessage(err))
	})

	t.Run("unknown facility", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Search(context.Background(), dto.SearchRequest{CheckIn: "2024-06-01", CheckOut: "2024-06-02", Facilities: []string{"pool"}})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})

	t.Run("filters in sql and drops conflicting rooms", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ gDto.QueryParams, filter gDto.FilterGroup, _ ...string) ([]model.Room, error) {
				where, args := filter.GetWhereClause()
				assert.Contains(t, where, "rooms.availability = :availability")
				assert.Contains(t, where, "rooms.wifi = :wifi")
				assert.Contains(t, where, "rooms.hot_water = :hot_water")
				assert.Equal(t, "%sea%", args["hotel_name"])

				return []model.Room{{ID: "room-1", Key: "a"}, {ID: "room-2", Key: "b"}}, nil
			})
		f.repo.EXPECT().ActiveEntriesForRooms(gomock.Any(), []string{"room-1", "room-2"}).
			Return(map[string][]model.BookedDate{
				"room-1": {{StartDate: mustDate("2024-06-01"), EndDate: mustDate("2024-06-05"), Status: model.EntryPending}},
			}, nil)

		res, err := f.svc.Search(context.Background(), dto.SearchRequest{
			CheckIn:    "2024-06-03",
			CheckOut:   "2024-06-04",
			HotelName:  "sea",
			Facilities: []string{"wifi", "hotWater"},
		})

		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "b", res[0].Key)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("database error"))

		_, err := f.svc.Search(context.Background(), dto.SearchRequest{CheckIn: "2024-06-03", CheckOut: "2024-06-04"})
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
	})
}
