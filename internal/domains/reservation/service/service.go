package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"lodge/infras/metrics"
	"lodge/infras/otel"
	"lodge/internal/domains/reservation/model/dto"
	"lodge/internal/domains/room/availability"
	"lodge/internal/domains/room/model"
	roomDto "lodge/internal/domains/room/model/dto"
	"lodge/internal/domains/room/repository"
	roomService "lodge/internal/domains/room/service"
	userService "lodge/internal/domains/user/service"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/event"
	"lodge/shared/failure"
	"lodge/shared/lock"
	gModel "lodge/shared/model"
	"lodge/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	opPlaceHold   = "place_hold"
	opConfirmHold = "confirm_hold"
	opCancelHold  = "cancel_hold"
	opSearch      = "search"
)

const (
	msgLoginRequired      = "Please login and try again"
	msgHoldFieldsRequired = "Check-in date, check-out date, and number of guests are required"
	msgSearchDates        = "Check-in and check-out dates are required"
	msgInvalidDate        = "Invalid check-in or check-out date"
	msgDateOrder          = "Check-out date must be after check-in date"
	msgRoomUnavailable    = "Room is not available"
	msgDatesTaken         = "Room is not available for selected dates"
	msgCapacityExceeded   = "Room capacity exceeded. Maximum %d guests allowed"
	msgUnknownFacility    = "Unknown facility %q"
)

// Reservation owns the hold lifecycle of a room ledger: NONE -> pending -> confirmed | cancelled.
// Every mutation holds the per-room lock and runs as one version checked transaction.
type Reservation interface {
	PlaceHold(ctx context.Context, key string, req dto.PlaceHoldRequest) (dto.PlaceHoldResponse, error)
	ConfirmHold(ctx context.Context, req dto.ConfirmHoldRequest) error
	CancelHold(ctx context.Context, req dto.CancelHoldRequest) error
	Search(ctx context.Context, req dto.SearchRequest) ([]roomDto.RoomResponse, error)
}

type serviceImpl struct {
	repo      repository.Room
	users     userService.User
	locker    lock.Locker
	cache     cache.RedisCache
	publisher event.Publisher
	metrics   metrics.Metrics
	otel      otel.Otel
}

func New(
	repo repository.Room,
	users userService.User,
	locker lock.Locker,
	cache cache.RedisCache,
	publisher event.Publisher,
	metrics metrics.Metrics,
	otel otel.Otel,
) Reservation {
	return &serviceImpl{
		repo:      repo,
		users:     users,
		locker:    locker,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		otel:      otel,
	}
}

type holdPayload struct {
	RoomKey      string `json:"roomKey"`
	CheckInDate  string `json:"checkInDate"`
	CheckOutDate string `json:"checkOutDate"`
	BookingID    string `json:"bookingId,omitempty"`
	PaymentID    string `json:"paymentId,omitempty"`
}

func parseStay(checkIn, checkOut string) (availability.Interval, error) {
	start, err := timezone.ParseDate(checkIn)
	if err != nil {
		return availability.Interval{}, failure.BadRequestFromString(msgInvalidDate)
	}

	end, err := timezone.ParseDate(checkOut)
	if err != nil {
		return availability.Interval{}, failure.BadRequestFromString(msgInvalidDate)
	}

	stay := availability.NewInterval(start, end)
	if !stay.Valid() {
		return stay, failure.BadRequestFromString(msgDateOrder)
	}

	return stay, nil
}

func optional(value string) *string {
	if value == constant.Empty {
		return nil
	}

	return &value
}

func actorOf(identity shared.Identity) string {
	if identity.UserID == constant.Empty {
		return constant.SystemActorID
	}

	return identity.UserID
}

// mutateLedger runs change against the locked room and its ledger, then writes the room
// state back conditionally on the version it read.
func (s *serviceImpl) mutateLedger(
	ctx context.Context,
	key string,
	actor string,
	change func(ctx context.Context, tx repository.LedgerTx, room *model.Room, entries []model.BookedDate) error,
) (model.Room, error) {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return model.Room{}, err //nolint:wrapcheck
	}
	defer release()

	var saved model.Room

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		room, found, err := tx.LockByKey(ctx, key)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if !found {
			return failure.ErrRoomNotFound
		}

		entries, err := tx.Entries(ctx, room.ID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if err = change(ctx, tx, &room, entries); err != nil {
			return err
		}

		room.ModifiedBy = actor
		saved, err = tx.SaveState(ctx, room)

		return err //nolint:wrapcheck
	})

	return saved, err //nolint:wrapcheck
}

func (s *serviceImpl) record(operation string, err error) {
	s.metrics.RecordReservation(operation, metrics.Result(err, failure.IsClientError))

	if err != nil && !failure.IsClientError(err) {
		log.Error().Err(err).Str("operation", operation).Msg("reservation failed")
	}
}

func (s *serviceImpl) invalidate(ctx context.Context, key string) {
	roomService.Invalidate(context.WithoutCancel(ctx), s.cache, key)
}

// PlaceHold checks, in order: required fields, date order, room exists, room flag,
// ledger conflict, capacity. Nothing is written unless every check passes.
func (s *serviceImpl) PlaceHold(ctx context.Context, key string, req dto.PlaceHoldRequest) (res dto.PlaceHoldResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.PlaceHold")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opPlaceHold, err) }()

	identity := shared.IdentityFromContext(ctx)
	if identity.UserID == constant.Empty {
		return res, failure.Unauthorized(msgLoginRequired) // nolint:wrapcheck
	}

	if req.CheckInDate == constant.Empty || req.CheckOutDate == constant.Empty || req.NumberOfGuests <= 0 {
		return res, failure.BadRequestFromString(msgHoldFieldsRequired) // nolint:wrapcheck
	}

	stay, err := parseStay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return res, err
	}

	contact, err := s.users.Contact(ctx, identity)
	if err != nil {
		return res, fmt.Errorf("failed to snapshot customer: %w", err)
	}

	room, err := s.mutateLedger(ctx, key, identity.UserID, func(ctx context.Context, tx repository.LedgerTx, room *model.Room, entries []model.BookedDate) error {
		if !room.Availability {
			return failure.BadRequestFromString(msgRoomUnavailable)
		}

		if availability.Conflicts(entries, stay) {
			return failure.BadRequestFromString(msgDatesTaken)
		}

		if req.NumberOfGuests > room.Capacity {
			return failure.BadRequestf(msgCapacityExceeded, room.Capacity)
		}

		return tx.AppendEntry(ctx, model.BookedDate{ //nolint:wrapcheck
			ID:        uuid.NewString(),
			RoomID:    room.ID,
			StartDate: stay.Start,
			EndDate:   stay.End,
			Status:    model.EntryPending,
			Metadata:  gModel.NewMetadata(identity.UserID),
		})
	})
	if err != nil {
		log.Info().Err(err).Str("roomKey", key).Msg("hold not placed")

		return res, err
	}

	nights := stay.Nights()

	res.Message = dto.MsgHoldPlaced
	res.BookingDetails = dto.BookingDetails{
		RoomKey:         room.Key,
		HotelName:       room.HotelName,
		RoomType:        room.RoomType,
		RoomNumber:      room.RoomNumber,
		CheckInDate:     req.CheckInDate,
		CheckOutDate:    req.CheckOutDate,
		NumberOfNights:  nights,
		NumberOfGuests:  req.NumberOfGuests,
		PricePerNight:   room.Price,
		TotalAmount:     room.Price * float64(nights),
		CustomerDetails: contact,
	}
	res.BookingDetails.Facilities.FromModel(room.Facilities)

	s.invalidate(ctx, key)
	s.publisher.Publish(ctx, event.New(event.HoldPlaced, room.Key, identity.UserID, holdPayload{
		RoomKey:      room.Key,
		CheckInDate:  timezone.CalendarDay(stay.Start),
		CheckOutDate: timezone.CalendarDay(stay.End),
	}))

	return res, nil
}

// ConfirmHold cannot tell a missing hold from one that is already confirmed, cancelled or
// booked on other days; all of them are ErrHoldNotFound.
func (s *serviceImpl) ConfirmHold(ctx context.Context, req dto.ConfirmHoldRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.ConfirmHold")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opConfirmHold, err) }()

	stay, err := parseStay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return err
	}

	actor := actorOf(shared.IdentityFromContext(ctx))

	_, err = s.mutateLedger(ctx, req.RoomKey, actor, func(ctx context.Context, tx repository.LedgerTx, room *model.Room, entries []model.BookedDate) error {
		idx := availability.FindPending(entries, stay)
		if idx < 0 {
			return failure.ErrHoldNotFound
		}

		entry := entries[idx]
		entry.Status = model.EntryConfirmed
		entry.BookingID = optional(req.BookingID)
		entry.PaymentID = optional(req.PaymentID)
		entry.Touch(actor)

		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return err //nolint:wrapcheck
		}

		room.MarkBooked()

		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, req.RoomKey)
	s.publisher.Publish(ctx, event.New(event.HoldConfirmed, req.RoomKey, actor, holdPayload{
		RoomKey:      req.RoomKey,
		CheckInDate:  timezone.CalendarDay(stay.Start),
		CheckOutDate: timezone.CalendarDay(stay.End),
		BookingID:    req.BookingID,
		PaymentID:    req.PaymentID,
	}))

	return nil
}

func (s *serviceImpl) CancelHold(ctx context.Context, req dto.CancelHoldRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.CancelHold")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opCancelHold, err) }()

	stay, err := parseStay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return err
	}

	actor := actorOf(shared.IdentityFromContext(ctx))

	_, err = s.mutateLedger(ctx, req.RoomKey, actor, func(ctx context.Context, tx repository.LedgerTx, room *model.Room, entries []model.BookedDate) error {
		idx := availability.FindPending(entries, stay)
		if idx < 0 {
			return failure.ErrHoldNotFound
		}

		entry := entries[idx]
		entry.Status = model.EntryCancelled
		entry.Touch(actor)

		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return err //nolint:wrapcheck
		}

		room.MarkAvailable()

		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, req.RoomKey)
	s.publisher.Publish(ctx, event.New(event.HoldCancelled, req.RoomKey, actor, holdPayload{
		RoomKey:      req.RoomKey,
		CheckInDate:  timezone.CalendarDay(stay.Start),
		CheckOutDate: timezone.CalendarDay(stay.End),
	}))

	return nil
}

func searchFilter(req dto.SearchRequest) (gDto.FilterGroup, error) {
	filters := []any{
		gDto.Filter{Field: model.FieldAvailability, Value: true, Operator: gDto.FilterOperatorEq, Table: model.TableName},
	}

	if req.HotelName != constant.Empty {
		filters = append(filters, gDto.Filter{Field: model.FieldHotelName, Value: req.HotelName, Operator: gDto.FilterOperatorLike, Table: model.TableName})
	}

	if req.RoomType != constant.Empty {
		filters = append(filters, gDto.Filter{Field: model.FieldRoomType, Value: req.RoomType, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	for _, name := range req.Facilities {
		column, ok := model.FacilityColumns[name]
		if !ok {
			return gDto.FilterGroup{}, failure.BadRequestf(msgUnknownFacility, name)
		}

		filters = append(filters, gDto.Filter{Field: column, Value: true, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	return gDto.FilterGroup{Filters: filters, Operator: gDto.FilterGroupOperatorAnd}, nil
}

// Search narrows candidates in SQL and then drops rooms whose ledger conflicts, using the
// same check as PlaceHold. It never reads from cache.
func (s *serviceImpl) Search(ctx context.Context, req dto.SearchRequest) (res []roomDto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Search")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()
	defer func() { s.record(opSearch, err) }()

	if req.CheckIn == constant.Empty || req.CheckOut == constant.Empty {
		return nil, failure.BadRequestFromString(msgSearchDates) // nolint:wrapcheck
	}

	stay, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	filter, err := searchFilter(req)
	if err != nil {
		return nil, err
	}

	params := gDto.QueryParams{SortBy: constant.DefaultValueSortBy, SortDir: constant.DefaultValueSortDir}

	rooms, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search rooms: %w", err)
	}

	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}

	entries, err := s.repo.ActiveEntriesForRooms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledgers: %w", err)
	}

	free := availability.Free(rooms, entries, stay)

	res = make([]roomDto.RoomResponse, len(free))
	for i, room := range free {
		res[i].FromModel(room)
	}

	return res, nil
}
