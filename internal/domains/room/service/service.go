package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"lodge/config"
	"lodge/infras/metrics"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/room/model"
	"lodge/internal/domains/room/model/dto"
	"lodge/internal/domains/room/repository"
	"lodge/shared"
	"lodge/shared/cache"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	"lodge/shared/lock"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetRoom      = "room:get"
	cacheGetAllRoom   = "room:gets"
	cacheCountRoom    = "room:count"
	cacheHotelRoom    = "room:hotel"
	msgDuplicateRoom  = "Room with the same key or room number already exists"
	msgNoFieldsToEdit = "No fields provided to update"
)

var sortableColumns = []string{
	constant.FieldCreatedAt,
	model.FieldPrice,
	model.FieldCapacity,
	model.FieldHotelName,
	model.FieldRoomNumber,
}

type Room interface {
	Create(ctx context.Context, req dto.CreateRoomRequest) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, key string) (dto.RoomResponse, error)
	GetByHotel(ctx context.Context, hotelName string, req gDto.QueryParams) (dto.GetRoomsResponse, error)
	Update(ctx context.Context, req dto.UpdateRoomRequest, key string) error
	UpdateAvailability(ctx context.Context, req dto.UpdateAvailabilityRequest, key string) error
	Delete(ctx context.Context, key string) error
}

type serviceImpl struct {
	repo    repository.Room
	cfg     *config.Config
	cache   cache.RedisCache
	locker  lock.Locker
	metrics metrics.Metrics
	otel    otel.Otel
}

func New(repo repository.Room, cfg *config.Config, cache cache.RedisCache, locker lock.Locker, metrics metrics.Metrics, otel otel.Otel) Room {
	return &serviceImpl{
		repo:    repo,
		cfg:     cfg,
		cache:   cache,
		locker:  locker,
		metrics: metrics,
		otel:    otel,
	}
}

// Invalidate drops every cached view of the room with the given key.
func Invalidate(ctx context.Context, redisCache cache.RedisCache, key string) {
	if err := redisCache.Delete(ctx, shared.BuildCacheKey(cacheGetRoom, key)); err != nil {
		log.Error().Err(err).Str("roomKey", key).Msg("failed to delete room cache")
	}

	shared.InvalidateCaches(ctx, redisCache, cacheGetAllRoom)
	shared.InvalidateCaches(ctx, redisCache, cacheCountRoom)
	shared.InvalidateCaches(ctx, redisCache, cacheHotelRoom)
}

func byKey(key string) gDto.FilterGroup {
	return shared.FilterByID(key, model.FieldKey, model.TableName)
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRoomRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user := shared.IdentityFromContext(ctx).UserID

	if err = s.repo.Insert(ctx, req.ToModel(user)); err != nil {
		if postgres.IsUniqueViolation(err) {
			return failure.Conflict(msgDuplicateRoom) // nolint:wrapcheck
		}

		log.Error().Err(err).Str("roomKey", req.Key).Msg("failed to insert room")

		return fmt.Errorf("failed to insert room: %w", err)
	}

	c := context.WithoutCancel(ctx)

	shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)
	shared.InvalidateCaches(c, s.cache, cacheCountRoom)
	shared.InvalidateCaches(c, s.cache, cacheHotelRoom)

	return nil
}

// GetAll hides unavailable rooms from everyone but admins.
func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.RestrictSort(sortableColumns...)

	if !shared.IdentityFromContext(ctx).IsAdmin() {
		filter = onlyAvailable(filter)
	}

	return s.list(ctx, cacheGetAllRoom, req, filter)
}

func (s *serviceImpl) GetByHotel(ctx context.Context, hotelName string, req gDto.QueryParams) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.GetByHotel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.RestrictSort(sortableColumns...)

	filter := onlyAvailable(gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldHotelName,
				Value:    hotelName,
				Operator: gDto.FilterOperatorLike,
				Table:    model.TableName,
			},
		},
	})

	return s.list(ctx, cacheHotelRoom, req, filter)
}

func onlyAvailable(filter gDto.FilterGroup) gDto.FilterGroup {
	available := gDto.Filter{
		Field:    model.FieldAvailability,
		Value:    true,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	}

	if len(filter.Filters) == 0 {
		return gDto.FilterGroup{Filters: []any{available}}
	}

	return gDto.FilterGroup{
		Filters:  []any{filter, available},
		Operator: gDto.FilterGroupOperatorAnd,
	}
}

func (s *serviceImpl) list(ctx context.Context, prefix string, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	cacheKey := shared.BuildCacheKeyWithQuery(prefix, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	s.metrics.RecordCache(prefix, err == nil)

	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save rooms to cache")
	}

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save room count to cache")
	}

	return res, nil
}

// Get includes the full ledger.
func (s *serviceImpl) Get(ctx context.Context, key string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetRoom, key)

	err = s.cache.Get(ctx, cacheKey, &res)
	s.metrics.RecordCache(cacheGetRoom, err == nil)

	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room")

		return res, nil
	}

	room, found, err := s.repo.Get(ctx, byKey(key))
	if err != nil {
		log.Error().Err(err).Str("roomKey", key).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if !found {
		return res, failure.ErrRoomNotFound
	}

	entries, err := s.repo.Entries(ctx, room.ID)
	if err != nil {
		log.Error().Err(err).Str("roomKey", key).Msg("failed to get room ledger")

		return res, fmt.Errorf("failed to get room ledger: %w", err)
	}

	res.FromModel(room)
	res.WithLedger(entries)

	if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save room to cache")
	}

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateRoomRequest, key string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user := shared.IdentityFromContext(ctx).UserID

	affected, err := s.repo.Update(ctx, req.Fields(user), byKey(key))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return failure.Conflict(msgDuplicateRoom) // nolint:wrapcheck
		}

		log.Error().Err(err).Str("roomKey", key).Msg("failed to update room")

		return fmt.Errorf("failed to update room: %w", err)
	}

	if affected == 0 {
		return failure.ErrRoomNotFound
	}

	Invalidate(context.WithoutCancel(ctx), s.cache, key)

	return nil
}

// UpdateAvailability writes the summary flags through the ledger transaction so it
// serializes with hold placement on the same room.
func (s *serviceImpl) UpdateAvailability(ctx context.Context, req dto.UpdateAvailabilityRequest, key string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.UpdateAvailability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if req.Empty() {
		return failure.BadRequestFromString(msgNoFieldsToEdit) // nolint:wrapcheck
	}

	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("roomKey", key).Msg("failed to acquire room lock")

		return err // nolint:wrapcheck
	}
	defer release()

	user := shared.IdentityFromContext(ctx).UserID

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		room, found, err := tx.LockByKey(ctx, key)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if !found {
			return failure.ErrRoomNotFound
		}

		if req.Availability != nil {
			room.Availability = *req.Availability
		}

		if req.Status != nil {
			room.Status = *req.Status
		}

		room.ModifiedBy = user
		_, err = tx.SaveState(ctx, room)

		return err //nolint:wrapcheck
	})
	if err != nil {
		if !errors.Is(err, failure.ErrRoomNotFound) {
			log.Error().Err(err).Str("roomKey", key).Msg("failed to update room availability")
		}

		return err // nolint:wrapcheck
	}

	Invalidate(context.WithoutCancel(ctx), s.cache, key)

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, key string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	affected, err := s.repo.Delete(ctx, byKey(key))
	if err != nil {
		log.Error().Err(err).Str("roomKey", key).Msg("failed to delete room")

		return fmt.Errorf("failed to delete room: %w", err)
	}

	if affected == 0 {
		return failure.ErrRoomNotFound
	}

	Invalidate(context.WithoutCancel(ctx), s.cache, key)

	return nil
}
