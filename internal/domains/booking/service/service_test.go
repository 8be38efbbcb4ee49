package service_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lodge/config"
	metricsMocks "lodge/infras/metrics/mocks"
	"lodge/infras/otel/mocks"
	s3Mocks "lodge/infras/s3/mocks"
	bookingMocks "lodge/internal/domains/booking/mocks"
	"lodge/internal/domains/booking/model"
	"lodge/internal/domains/booking/model/dto"
	"lodge/internal/domains/booking/service"
	userMocks "lodge/internal/domains/user/mocks"
	userModel "lodge/internal/domains/user/model"
	userService "lodge/internal/domains/user/service"
	cacheMocks "lodge/shared/cache/mocks"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	eventMocks "lodge/shared/event/mocks"
	"lodge/shared/failure"
)

var errCacheMiss = errors.New("cache miss")

type fixture struct {
	repo      *bookingMocks.MockBooking
	cache     *cacheMocks.MockRedisCache
	storage   *s3Mocks.MockS3
	publisher *eventMocks.MockPublisher
	svc       service.Booking
}

func newFixture(t *testing.T) fixture {
	f := newBareFixture(t)

	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).AnyTimes()

	return f
}

// newBareFixture leaves every cache call unexpected.
func newBareFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)

	f := fixture{
		repo:      bookingMocks.NewMockBooking(ctrl),
		cache:     cacheMocks.NewMockRedisCache(ctrl),
		storage:   s3Mocks.NewMockS3(ctrl),
		publisher: eventMocks.NewMockPublisher(ctrl),
	}

	users := userMocks.NewMockUser(ctrl)
	users.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{
		ID:        "user-1",
		Email:     "kusal@example.com",
		FirstName: "Kusal",
		LastName:  "Perera",
		Phone:     "0771234567",
	}, true, nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Booking.IDPrefix = "BK-"

	f.svc = service.New(
		f.repo,
		userService.New(users, mocks.NewOtel()),
		cfg,
		f.cache,
		f.storage,
		f.publisher,
		metricsMocks.NewMetrics(),
		mocks.NewOtel(),
	)

	return f
}

func (f fixture) cacheMiss() {
	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errCacheMiss).AnyTimes()
}

func withRole(userID, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, userID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

func customerCtx() context.Context { return withRole("user-1", constant.RoleCustomer) }

func adminCtx() context.Context { return withRole("admin-1", constant.RoleAdmin) }

func systemCtx() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserRole, constant.RoleSystem)
}

func pendingBooking() model.Booking {
	return model.Booking{
		ID:            "b-1",
		BookingID:     "BK-1",
		UserID:        "user-1",
		BookingType:   model.TypeRoom,
		ItemID:        "suite-1",
		TotalAmount:   200,
		BookingStatus: model.StatusPending,
		PaymentMethod: model.PaymentMethodOnline,
		PaymentStatus: model.PaymentPending,
	}
}

func createRequest() dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		BookingType:   model.TypeRoom,
		ItemID:        "suite-1",
		ItemName:      "Seaside Suite",
		ItemPrice:     100,
		StartDate:     "2024-06-01",
		EndDate:       "2024-06-03",
		TotalAmount:   200,
		PaymentMethod: model.PaymentMethodOnline,
	}
}

func TestBookingService_Create(t *testing.T) {
	uniqueViolation := &pq.Error{Code: constant.PqErrorCodeUniqueViolation}

	tests := []struct {
		name      string
		ctx       context.Context
		req       func() dto.CreateBookingRequest
		setupMock func(f fixture)
		wantCode  int
	}{
		{
			name:     "anonymous caller",
			ctx:      context.Background(),
			req:      createRequest,
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "end before start",
			ctx:  customerCtx(),
			req: func() dto.CreateBookingRequest {
				req := createRequest()
				req.EndDate = "2024-05-30"

				return req
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "id collision exhausts retries",
			ctx:  customerCtx(),
			req:  createRequest,
			setupMock: func(f fixture) {
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(uniqueViolation).Times(4)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "database error",
			ctx:  customerCtx(),
			req:  createRequest,
			setupMock: func(f fixture) {
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("database error"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			_, err := f.svc.Create(tt.ctx, tt.req())

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))
		})
	}
}

func TestBookingService_CreateSnapshotsCustomer(t *testing.T) {
	f := newFixture(t)

	var ids []string

	gomock.InOrder(
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, b model.Booking) error {
				ids = append(ids, b.BookingID)

				return &pq.Error{Code: constant.PqErrorCodeUniqueViolation}
			}),
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, b model.Booking) error {
				ids = append(ids, b.BookingID)

				assert.Equal(t, "user-1", b.UserID)
				assert.Equal(t, "Kusal Perera", b.CustomerName)
				assert.Equal(t, "kusal@example.com", b.CustomerEmail)
				assert.Equal(t, "0771234567", b.CustomerPhone)
				assert.Equal(t, model.StatusPending, b.BookingStatus)
				assert.Equal(t, model.PaymentPending, b.PaymentStatus)
				assert.Equal(t, 1, b.Quantity)
				assert.InDelta(t, 200.0, b.TotalAmount, 0.001)
				require.NotNil(t, b.StartDate)
				require.NotNil(t, b.EndDate)

				return nil
			}),
	)

	res, err := f.svc.Create(customerCtx(), createRequest())
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.True(t, strings.HasPrefix(ids[0], "BK-"))
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, ids[1], res.BookingID)
	assert.Equal(t, "2024-06-01", res.StartDate)
	assert.Equal(t, "Kusal Perera", res.CustomerDetails.Name)
}

func TestBookingService_CancelTwice(t *testing.T) {
	f := newFixture(t)

	cancelled := pendingBooking()
	cancelled.BookingStatus = model.StatusCancelled

	gomock.InOrder(
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil),
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, filter gDto.FilterGroup) (int64, error) {
				assert.Equal(t, model.StatusCancelled, fields[model.FieldBookingStatus])

				where, _ := filter.GetWhereClause()
				assert.Contains(t, where, "bookings.booking_status != :booking_status")

				return 1, nil
			}),
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(cancelled, true, nil),
	)

	require.NoError(t, f.svc.Cancel(customerCtx(), "BK-1"))

	err := f.svc.Cancel(customerCtx(), "BK-1")
	assert.ErrorIs(t, err, failure.ErrBookingAlreadyCancelled)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestBookingService_Cancel(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		setupMock func(f fixture)
		wantErr   error
		wantCode  int
	}{
		{
			name: "not found",
			ctx:  customerCtx(),
			setupMock: func(f fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, false, nil)
			},
			wantErr:  failure.ErrBookingNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name: "someone else's booking",
			ctx:  withRole("user-2", constant.RoleCustomer),
			setupMock: func(f fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "lost the race to another cancel",
			ctx:  customerCtx(),
			setupMock: func(f fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
				f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil)
			},
			wantErr:  failure.ErrBookingAlreadyCancelled,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "admin cancels any booking",
			ctx:  adminCtx(),
			setupMock: func(f fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
				f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
			},
		},
		{
			name: "payment subsystem cancels",
			ctx:  systemCtx(),
			setupMock: func(f fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
				f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) (int64, error) {
						assert.Equal(t, constant.SystemActorID, fields[constant.FieldModifiedBy])

						return 1, nil
					})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			err := f.svc.Cancel(tt.ctx, "BK-1")

			if tt.wantCode == 0 {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBookingService_UpdatePayment(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		req        dto.UpdatePaymentRequest
		wantStatus string
		wantCode   int
	}{
		{
			name:       "paid confirms the booking",
			ctx:        systemCtx(),
			req:        dto.UpdatePaymentRequest{BookingID: "BK-1", PaymentStatus: model.PaymentPaid, PaymentID: "PAY-1"},
			wantStatus: model.StatusConfirmed,
		},
		{
			name:       "failed leaves the booking pending",
			ctx:        customerCtx(),
			req:        dto.UpdatePaymentRequest{BookingID: "BK-1", PaymentStatus: model.PaymentFailed},
			wantStatus: model.StatusPending,
		},
		{
			name:     "other customer",
			ctx:      withRole("user-2", constant.RoleCustomer),
			req:      dto.UpdatePaymentRequest{BookingID: "BK-1", PaymentStatus: model.PaymentPaid},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "anonymous caller",
			ctx:      context.Background(),
			req:      dto.UpdatePaymentRequest{BookingID: "BK-1", PaymentStatus: model.PaymentPaid},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)

			if tt.wantCode == 0 {
				f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) (int64, error) {
						assert.Equal(t, tt.req.PaymentStatus, fields[model.FieldPaymentStatus])
						assert.Equal(t, tt.wantStatus, fields[model.FieldBookingStatus])

						return 1, nil
					})
			}

			err := f.svc.UpdatePayment(tt.ctx, tt.req)

			if tt.wantCode == 0 {
				require.NoError(t, err)

				return
			}

			assert.Equal(t, tt.wantCode, failure.GetCode(err))
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.UpdatePayment(adminCtx(), dto.UpdatePaymentRequest{BookingID: "BK-1", PaymentStatus: "lost"})
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})
}

func TestBookingService_CacheConsistency(t *testing.T) {
	t.Run("mutation drops the cached booking before returning", func(t *testing.T) {
		f := newBareFixture(t)
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).AnyTimes()
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)

		var deleted atomic.Bool

		f.cache.EXPECT().Delete(gomock.Any(), "booking:get:BK-1").
			DoAndReturn(func(context.Context, string) error {
				deleted.Store(true)

				return nil
			})
		f.cache.EXPECT().Clear(gomock.Any(), "booking:gets*").Return(nil)
		f.cache.EXPECT().Clear(gomock.Any(), "booking:count*").Return(nil)

		err := f.svc.UpdatePayment(systemCtx(), dto.UpdatePaymentRequest{BookingID: "BK-1", PaymentStatus: model.PaymentPaid, PaymentID: "PAY-1"})
		require.NoError(t, err)
		assert.True(t, deleted.Load())
	})

	t.Run("read fills the cache before returning", func(t *testing.T) {
		f := newBareFixture(t)
		f.cache.EXPECT().Get(gomock.Any(), "booking:get:BK-1", gomock.Any()).Return(errCacheMiss)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)

		var saved atomic.Bool

		f.cache.EXPECT().Save(gomock.Any(), "booking:get:BK-1", gomock.Any(), 3600).
			DoAndReturn(func(_ context.Context, _ string, value any, _ int) error {
				res, ok := value.(dto.BookingResponse)
				require.True(t, ok)
				assert.Equal(t, "BK-1", res.BookingID)
				saved.Store(true)

				return nil
			})

		_, err := f.svc.Get(context.Background(), "BK-1")
		require.NoError(t, err)
		assert.True(t, saved.Load())
	})
}

func TestBookingService_Verify(t *testing.T) {
	t.Run("admin verifies pending payment", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) (int64, error) {
				assert.Equal(t, model.PaymentPaid, fields[model.FieldPaymentStatus])
				assert.Equal(t, model.StatusConfirmed, fields[model.FieldBookingStatus])
				assert.Equal(t, false, fields[model.FieldNotificationSent])
				assert.Equal(t, "deposit matched", fields[model.FieldAdminNotes])
				assert.Equal(t, "admin-1", fields[constant.FieldModifiedBy])

				return 1, nil
			})

		require.NoError(t, f.svc.Verify(adminCtx(), "BK-1", dto.VerifyPaymentRequest{AdminNotes: "deposit matched"}))
	})

	t.Run("customers cannot verify", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.Verify(customerCtx(), "BK-1", dto.VerifyPaymentRequest{})
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, false, nil)

		assert.ErrorIs(t, f.svc.Verify(adminCtx(), "BK-9", dto.VerifyPaymentRequest{}), failure.ErrBookingNotFound)
	})
}

func TestBookingService_Queries(t *testing.T) {
	t.Run("list mine filters by caller newest first", func(t *testing.T) {
		f := newFixture(t)
		f.cacheMiss()

		f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(1, nil)
		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params gDto.QueryParams, filter gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
				assert.Equal(t, constant.FieldCreatedAt, params.SortBy)
				assert.Equal(t, constant.DefaultValueSortDir, params.SortDir)

				_, args := filter.GetWhereClause()
				assert.Equal(t, "user-1", args[model.FieldUserID])

				return []model.Booking{pendingBooking()}, nil
			})

		res, err := f.svc.ListMine(customerCtx(), gDto.QueryParams{Page: 1, Limit: 10, SortBy: "total_amount", SortDir: "ASC"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalData)
		require.Len(t, res.Bookings, 1)
		assert.Equal(t, "BK-1", res.Bookings[0].BookingID)
	})

	t.Run("all bookings is admin only", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.GetAll(customerCtx(), gDto.QueryParams{})
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("payment status must be known", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ListByPaymentStatus(adminCtx(), "lost", gDto.QueryParams{})
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})

	t.Run("get serves from cache", func(t *testing.T) {
		f := newFixture(t)
		f.cache.EXPECT().Get(gomock.Any(), "booking:get:BK-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, value any) error {
				res, ok := value.(*dto.BookingResponse)
				require.True(t, ok)
				res.BookingID = "BK-1"

				return nil
			})

		res, err := f.svc.Get(context.Background(), "BK-1")
		require.NoError(t, err)
		assert.Equal(t, "BK-1", res.BookingID)
	})

	t.Run("get not found", func(t *testing.T) {
		f := newFixture(t)
		f.cacheMiss()
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, false, nil)

		_, err := f.svc.Get(context.Background(), "BK-9")
		assert.ErrorIs(t, err, failure.ErrBookingNotFound)
	})
}

func TestBookingService_UploadPaymentSlip(t *testing.T) {
	slip := func(name string, size int64) dto.PaymentSlip {
		return dto.PaymentSlip{FileName: name, ContentType: "image/png", Size: size, Content: bytes.NewReader([]byte("slip"))}
	}

	t.Run("rejects other file types", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UploadPaymentSlip(customerCtx(), "BK-1", slip("slip.gif", 10))
		assert.Equal(t, "Only PNG, JPG, JPEG and PDF files are allowed", failure.GetMessage(err))
	})

	t.Run("rejects files over 5MB", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UploadPaymentSlip(customerCtx(), "BK-1", slip("slip.pdf", 5<<20+1))
		assert.Equal(t, "File size must not exceed 5MB", failure.GetMessage(err))
	})

	t.Run("owner only", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)

		_, err := f.svc.UploadPaymentSlip(adminCtx(), "BK-1", slip("slip.png", 10))
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("stores the url on the booking", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pendingBooking(), true, nil)
		f.storage.EXPECT().UploadFile(gomock.Any(), "payment-slips/BK-1", gomock.Any(), "image/png", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, fileName, _ string, _ any) (string, error) {
				assert.True(t, strings.HasSuffix(fileName, ".png"))

				return "https://cdn.example.com/payment-slips/BK-1/" + fileName, nil
			})
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) (int64, error) {
				assert.Contains(t, fields[model.FieldPaymentSlip], "https://cdn.example.com/payment-slips/BK-1/")
				assert.NotContains(t, fields, model.FieldPaymentStatus)

				return 1, nil
			})

		url, err := f.svc.UploadPaymentSlip(customerCtx(), "BK-1", slip("Slip.PNG", 10))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/"))
	})
}
