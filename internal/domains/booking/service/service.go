package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"lodge/config"
	"lodge/infras/metrics"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/infras/s3"
	"lodge/internal/domains/booking/model"
	"lodge/internal/domains/booking/model/dto"
	"lodge/internal/domains/booking/repository"
	userService "lodge/internal/domains/user/service"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/event"
	"lodge/shared/failure"
	"lodge/shared/timezone"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"

	opCreate        = "create"
	opCancel        = "cancel"
	opUpdatePayment = "update_payment"
	opVerify        = "verify"
	opUploadSlip    = "upload_slip"

	maxIDRetries   = 3
	maxSlipBytes   = 5 << 20
	slipDirectory  = "payment-slips"
	msgLogin       = "Please login and try again"
	msgNotOwner    = "You can only manage your own bookings"
	msgAdminOnly   = "Only administrators can perform this action"
	msgBadDates    = "Invalid start or end date"
	msgDateOrder   = "End date must be after start date"
	msgBookingID   = "Could not allocate a booking id, please retry"
	msgBadStatus   = "Invalid payment status"
	msgSlipType    = "Only PNG, JPG, JPEG and PDF files are allowed"
	msgSlipSize    = "File size must not exceed 5MB"
	msgSlipMissing = "Payment slip file is required"
)

var slipExtensions = []string{".png", ".jpg", ".jpeg", ".pdf"}

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams) (dto.GetBookingsResponse, error)
	ListMine(ctx context.Context, req gDto.QueryParams) (dto.GetBookingsResponse, error)
	ListByPaymentStatus(ctx context.Context, status string, req gDto.QueryParams) (dto.GetBookingsResponse, error)
	Get(ctx context.Context, bookingID string) (dto.BookingResponse, error)
	Cancel(ctx context.Context, bookingID string) error
	UpdatePayment(ctx context.Context, req dto.UpdatePaymentRequest) error
	Verify(ctx context.Context, bookingID string, req dto.VerifyPaymentRequest) error
	UploadPaymentSlip(ctx context.Context, bookingID string, slip dto.PaymentSlip) (string, error)
}

type serviceImpl struct {
	repo      repository.Booking
	users     userService.User
	cfg       *config.Config
	cache     cache.RedisCache
	storage   s3.S3
	publisher event.Publisher
	metrics   metrics.Metrics
	otel      otel.Otel
	ids       *idSource
}

func New(
	repo repository.Booking,
	users userService.User,
	cfg *config.Config,
	cache cache.RedisCache,
	storage s3.S3,
	publisher event.Publisher,
	metrics metrics.Metrics,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:      repo,
		users:     users,
		cfg:       cfg,
		cache:     cache,
		storage:   storage,
		publisher: publisher,
		metrics:   metrics,
		otel:      otel,
		ids:       newIDSource(cfg.Booking.IDPrefix, timezone.Now),
	}
}

type bookingPayload struct {
	BookingID     string  `json:"bookingId"`
	UserID        string  `json:"userId"`
	BookingType   string  `json:"bookingType"`
	ItemID        string  `json:"itemId"`
	BookingStatus string  `json:"bookingStatus"`
	PaymentStatus string  `json:"paymentStatus"`
	TotalAmount   float64 `json:"totalAmount"`
}

func payloadOf(b model.Booking) bookingPayload {
	return bookingPayload{
		BookingID:     b.BookingID,
		UserID:        b.UserID,
		BookingType:   b.BookingType,
		ItemID:        b.ItemID,
		BookingStatus: b.BookingStatus,
		PaymentStatus: b.PaymentStatus,
		TotalAmount:   b.TotalAmount,
	}
}

func byBookingID(bookingID string) gDto.FilterGroup {
	return shared.FilterByID(bookingID, model.FieldBookingID, model.TableName)
}

func newestFirst(req gDto.QueryParams) gDto.QueryParams {
	req.SortBy = constant.DefaultValueSortBy
	req.SortDir = constant.DefaultValueSortDir

	return req
}

func actorOf(identity shared.Identity) string {
	if identity.UserID == constant.Empty {
		return constant.SystemActorID
	}

	return identity.UserID
}

// authorize lets the owner, an admin or the payment subsystem act on a booking.
func authorize(identity shared.Identity, booking model.Booking) error {
	if !identity.Authenticated() {
		return failure.UnauthenticatedError
	}

	if identity.IsPrivileged() || booking.OwnedBy(identity.UserID) {
		return nil
	}

	return failure.Forbidden(msgNotOwner)
}

func requireAdmin(identity shared.Identity) error {
	if !identity.IsAdmin() {
		return failure.Forbidden(msgAdminOnly)
	}

	return nil
}

func paymentFields(booking model.Booking, actor string) map[string]any {
	return map[string]any{
		model.FieldPaymentStatus:    booking.PaymentStatus,
		model.FieldPaymentSlip:      booking.PaymentSlip,
		model.FieldPaymentID:        booking.PaymentID,
		model.FieldBookingStatus:    booking.BookingStatus,
		model.FieldAdminNotes:       booking.AdminNotes,
		model.FieldNotificationSent: booking.NotificationSent,
		constant.FieldModifiedAt:    timezone.Now(),
		constant.FieldModifiedBy:    actor,
	}
}

func (s *serviceImpl) record(operation string, err error) {
	s.metrics.RecordBooking(operation, metrics.Result(err, failure.IsClientError))
}

// invalidate runs before the mutation returns so a later read cannot be served the old booking.
func (s *serviceImpl) invalidate(ctx context.Context, bookingID string) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, bookingID)); err != nil {
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to delete booking from cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(c, s.cache, cacheCountBooking)
}

// Create stores the submitted amount without recomputing it from the item price.
func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opCreate, err) }()

	identity := shared.IdentityFromContext(ctx)
	if identity.UserID == constant.Empty {
		return res, failure.Unauthorized(msgLogin) // nolint:wrapcheck
	}

	start, end, err := req.Dates()
	if err != nil {
		return res, failure.BadRequestFromString(msgBadDates) // nolint:wrapcheck
	}

	if start != nil && end != nil && !end.After(*start) {
		return res, failure.BadRequestFromString(msgDateOrder) // nolint:wrapcheck
	}

	customer, err := s.users.Contact(ctx, identity)
	if err != nil {
		return res, fmt.Errorf("failed to snapshot customer: %w", err)
	}

	booking := req.ToModel(constant.Empty, customer, start, end)

	for attempt := 0; attempt <= maxIDRetries; attempt++ {
		booking.BookingID = s.ids.Next()

		err = s.repo.Insert(ctx, booking)
		if err == nil {
			break
		}

		if !postgres.IsUniqueViolation(err) {
			log.Error().Err(err).Str("bookingId", booking.BookingID).Msg("failed to insert booking")

			return res, fmt.Errorf("failed to insert booking: %w", err)
		}

		log.Warn().Str("bookingId", booking.BookingID).Int("attempt", attempt).Msg("booking id taken, retrying")
	}

	if err != nil {
		return res, failure.Conflict(msgBookingID) // nolint:wrapcheck
	}

	res.FromModel(booking)

	s.invalidate(ctx, booking.BookingID)
	s.publisher.Publish(ctx, event.New(event.BookingCreated, booking.BookingID, identity.UserID, payloadOf(booking)))

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = requireAdmin(shared.IdentityFromContext(ctx)); err != nil {
		return res, err
	}

	return s.list(ctx, newestFirst(req), gDto.FilterGroup{})
}

func (s *serviceImpl) ListMine(ctx context.Context, req gDto.QueryParams) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ListMine")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	identity := shared.IdentityFromContext(ctx)
	if identity.UserID == constant.Empty {
		return res, failure.Unauthorized(msgLogin) // nolint:wrapcheck
	}

	return s.list(ctx, newestFirst(req), shared.FilterByID(identity.UserID, model.FieldUserID, model.TableName))
}

func (s *serviceImpl) ListByPaymentStatus(ctx context.Context, status string, req gDto.QueryParams) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ListByPaymentStatus")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = requireAdmin(shared.IdentityFromContext(ctx)); err != nil {
		return res, err
	}

	if !slices.Contains(model.PaymentStatuses, status) {
		return res, failure.BadRequestFromString(msgBadStatus) // nolint:wrapcheck
	}

	return s.list(ctx, newestFirst(req), shared.FilterByID(status, model.FieldPaymentStatus, model.TableName))
}

func (s *serviceImpl) list(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	s.metrics.RecordCache(cacheGetAllBooking, err == nil)

	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.count(ctx, req, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save bookings to cache")
	}

	return res, nil
}

func (s *serviceImpl) count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save booking count to cache")
	}

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, bookingID string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetBooking, bookingID)

	err = s.cache.Get(ctx, cacheKey, &res)
	s.metrics.RecordCache(cacheGetBooking, err == nil)

	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.find(ctx, bookingID)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save booking to cache")
	}

	return res, nil
}

func (s *serviceImpl) find(ctx context.Context, bookingID string) (model.Booking, error) {
	booking, found, err := s.repo.Get(ctx, byBookingID(bookingID))
	if err != nil {
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if !found {
		return booking, failure.ErrBookingNotFound
	}

	return booking, nil
}

// Cancel leaves the room ledger alone; the caller cancels the hold separately.
func (s *serviceImpl) Cancel(ctx context.Context, bookingID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opCancel, err) }()

	identity := shared.IdentityFromContext(ctx)

	booking, err := s.find(ctx, bookingID)
	if err != nil {
		return err
	}

	if err = authorize(identity, booking); err != nil {
		return err
	}

	if booking.Cancelled() {
		return failure.ErrBookingAlreadyCancelled
	}

	actor := actorOf(identity)

	// the status guard keeps two concurrent cancels from both succeeding
	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldBookingID, Value: bookingID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldBookingStatus, Value: model.StatusCancelled, Operator: gDto.FilterOperatorNotEq, Table: model.TableName},
		},
		Operator: gDto.FilterGroupOperatorAnd,
	}

	affected, err := s.repo.Update(ctx, map[string]any{
		model.FieldBookingStatus: model.StatusCancelled,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: actor,
	}, filter)
	if err != nil {
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to cancel booking")

		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if affected == 0 {
		return failure.ErrBookingAlreadyCancelled
	}

	booking.BookingStatus = model.StatusCancelled

	s.invalidate(ctx, bookingID)
	s.publisher.Publish(ctx, event.New(event.BookingCancelled, bookingID, actor, payloadOf(booking)))

	return nil
}

func (s *serviceImpl) UpdatePayment(ctx context.Context, req dto.UpdatePaymentRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.UpdatePayment")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opUpdatePayment, err) }()

	if !slices.Contains(model.PaymentStatuses, req.PaymentStatus) {
		return failure.BadRequestFromString(msgBadStatus) // nolint:wrapcheck
	}

	identity := shared.IdentityFromContext(ctx)

	booking, err := s.find(ctx, req.BookingID)
	if err != nil {
		return err
	}

	if err = authorize(identity, booking); err != nil {
		return err
	}

	booking.ApplyPayment(req.PaymentStatus, req.PaymentSlip, req.PaymentID)

	if err = s.save(ctx, booking, actorOf(identity)); err != nil {
		return err
	}

	s.invalidate(ctx, booking.BookingID)
	s.publisher.Publish(ctx, event.New(event.PaymentUpdated, booking.BookingID, actorOf(identity), payloadOf(booking)))

	return nil
}

// Verify skips the regular payment update: paid, confirmed and queued for notification at once.
func (s *serviceImpl) Verify(ctx context.Context, bookingID string, req dto.VerifyPaymentRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Verify")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opVerify, err) }()

	identity := shared.IdentityFromContext(ctx)
	if err = requireAdmin(identity); err != nil {
		return err
	}

	booking, err := s.find(ctx, bookingID)
	if err != nil {
		return err
	}

	booking.Verify(req.AdminNotes)

	if err = s.save(ctx, booking, identity.UserID); err != nil {
		return err
	}

	s.invalidate(ctx, bookingID)
	s.publisher.Publish(ctx, event.New(event.PaymentVerified, bookingID, identity.UserID, payloadOf(booking)))

	return nil
}

func (s *serviceImpl) save(ctx context.Context, booking model.Booking, actor string) error {
	affected, err := s.repo.Update(ctx, paymentFields(booking, actor), byBookingID(booking.BookingID))
	if err != nil {
		log.Error().Err(err).Str("bookingId", booking.BookingID).Msg("failed to update booking payment")

		return fmt.Errorf("failed to update booking payment: %w", err)
	}

	if affected == 0 {
		return failure.ErrBookingNotFound
	}

	return nil
}

func checkSlip(slip dto.PaymentSlip) error {
	if slip.Content == nil || slip.FileName == constant.Empty {
		return failure.BadRequestFromString(msgSlipMissing) // nolint:wrapcheck
	}

	if !slices.Contains(slipExtensions, strings.ToLower(filepath.Ext(slip.FileName))) {
		return failure.BadRequestFromString(msgSlipType) // nolint:wrapcheck
	}

	if slip.Size > maxSlipBytes {
		return failure.BadRequestFromString(msgSlipSize) // nolint:wrapcheck
	}

	return nil
}

// UploadPaymentSlip stores bank deposit evidence. Payment and booking status are untouched.
func (s *serviceImpl) UploadPaymentSlip(ctx context.Context, bookingID string, slip dto.PaymentSlip) (url string, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.UploadPaymentSlip")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opUploadSlip, err) }()

	if err = checkSlip(slip); err != nil {
		return constant.Empty, err
	}

	identity := shared.IdentityFromContext(ctx)
	if identity.UserID == constant.Empty {
		return constant.Empty, failure.Unauthorized(msgLogin) // nolint:wrapcheck
	}

	booking, err := s.find(ctx, bookingID)
	if err != nil {
		return constant.Empty, err
	}

	if !booking.OwnedBy(identity.UserID) {
		return constant.Empty, failure.Forbidden(msgNotOwner) // nolint:wrapcheck
	}

	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(slip.FileName))

	uploaded, err := s.storage.UploadFile(ctx, path.Join(slipDirectory, bookingID), fileName, slip.ContentType, slip.Content)
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to upload payment slip: %w", err)
	}

	_, err = s.repo.Update(ctx, map[string]any{
		model.FieldPaymentSlip:   uploaded,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: identity.UserID,
	}, byBookingID(bookingID))
	if err != nil {
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to record payment slip")

		go func() {
			if objectKey := s.storage.GetObjectKeyFromURL(uploaded); objectKey != constant.Empty {
				if err := s.storage.DeleteFile(context.WithoutCancel(ctx), objectKey); err != nil {
					log.Error().Err(err).Str("objectKey", objectKey).Msg("failed to remove orphaned payment slip")
				}
			}
		}()

		return constant.Empty, fmt.Errorf("failed to record payment slip: %w", err)
	}

	s.invalidate(ctx, bookingID)

	return uploaded, nil
}
