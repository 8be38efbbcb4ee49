package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"lodge/infras/otel"
	"lodge/infras/postgres"
	"lodge/internal/domains/room/model"
	"lodge/shared"
	"lodge/shared/constant"
	gDto "lodge/shared/dto"
	"lodge/shared/failure"
	gRepo "lodge/shared/repository"
	"lodge/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const argExpectedVersion = "expected_version"

type Room interface {
	Insert(ctx context.Context, model model.Room) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Room, bool, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) (int64, error)
	Delete(ctx context.Context, filter gDto.FilterGroup) (int64, error)

	// Entries returns the whole ledger of one room in insertion order.
	Entries(ctx context.Context, roomID string) ([]model.BookedDate, error)
	// ActiveEntriesForRooms loads pending and confirmed entries keyed by room id.
	ActiveEntriesForRooms(ctx context.Context, roomIDs []string) (map[string][]model.BookedDate, error)
	// RunInTx commits when fn returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the read-check-write unit for one room. LockByKey must come first.
type LedgerTx interface {
	LockByKey(ctx context.Context, key string) (model.Room, bool, error)
	Entries(ctx context.Context, roomID string) ([]model.BookedDate, error)
	AppendEntry(ctx context.Context, entry model.BookedDate) error
	UpdateEntry(ctx context.Context, entry model.BookedDate) error
	// SaveState writes availability and status if the row still has room.Version.
	SaveState(ctx context.Context, room model.Room) (model.Room, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
	ledger gRepo.Repository[model.BookedDate]
	db     *postgres.Connection
	otel   otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldID, db, otel),
		ledger:     gRepo.NewRepository[model.BookedDate](model.LedgerEntityName, model.LedgerTableName, model.LedgerFieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func ledgerOrder() gDto.QueryParams {
	return gDto.QueryParams{SortBy: model.LedgerFieldSeq, SortDir: gDto.SortDirAsc}
}

func byRoom(roomID string) gDto.FilterGroup {
	return shared.FilterByID(roomID, model.LedgerFieldRoomID, model.LedgerTableName)
}

func (r *repositoryImpl) Entries(ctx context.Context, roomID string) ([]model.BookedDate, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.Entries")
	defer scope.End()

	entries, err := r.ledger.GetAll(ctx, ledgerOrder(), byRoom(roomID))
	if err != nil {
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get ledger of room %s: %w", roomID, err)
	}

	return entries, nil
}

func (r *repositoryImpl) ActiveEntriesForRooms(ctx context.Context, roomIDs []string) (map[string][]model.BookedDate, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.ActiveEntriesForRooms")
	defer scope.End()

	res := make(map[string][]model.BookedDate, len(roomIDs))
	if len(roomIDs) == 0 {
		return res, nil
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.LedgerFieldRoomID,
				Value:    roomIDs,
				Operator: gDto.FilterOperatorIn,
				Table:    model.LedgerTableName,
			},
			gDto.Filter{
				Field:    model.LedgerFieldStatus,
				Value:    []string{model.EntryPending, model.EntryConfirmed},
				Operator: gDto.FilterOperatorIn,
				Table:    model.LedgerTableName,
			},
		},
	}

	entries, err := r.ledger.GetAll(ctx, ledgerOrder(), filter)
	if err != nil {
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get active ledger entries: %w", err)
	}

	for _, entry := range entries {
		res[entry.RoomID] = append(res[entry.RoomID], entry)
	}

	return res, nil
}

func (r *repositoryImpl) RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	return r.Repository.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &ledgerTx{repo: r, tx: tx})
	})
}

type ledgerTx struct {
	repo *repositoryImpl
	tx   *sqlx.Tx
}

func (l *ledgerTx) LockByKey(ctx context.Context, key string) (model.Room, bool, error) {
	ctx, scope := l.repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.LockByKey")
	defer scope.End()

	room, found, err := l.repo.GetForUpdateTx(ctx, l.tx, shared.FilterByID(key, model.FieldKey, model.TableName))
	if err != nil {
		scope.TraceError(err)

		return room, false, fmt.Errorf("failed to lock room %s: %w", key, err)
	}

	return room, found, nil
}

func (l *ledgerTx) Entries(ctx context.Context, roomID string) ([]model.BookedDate, error) {
	ctx, scope := l.repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.TxEntries")
	defer scope.End()

	entries, err := l.repo.ledger.GetAllTx(ctx, l.tx, ledgerOrder(), byRoom(roomID))
	if err != nil {
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get ledger of room %s: %w", roomID, err)
	}

	return entries, nil
}

func (l *ledgerTx) AppendEntry(ctx context.Context, entry model.BookedDate) error {
	ctx, scope := l.repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.AppendEntry")
	defer scope.End()

	if err := l.repo.ledger.InsertTx(ctx, l.tx, entry); err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

func (l *ledgerTx) UpdateEntry(ctx context.Context, entry model.BookedDate) error {
	ctx, scope := l.repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.UpdateEntry")
	defer scope.End()

	fields := map[string]any{
		model.LedgerFieldStatus:    entry.Status,
		model.LedgerFieldBookingID: entry.BookingID,
		model.LedgerFieldPaymentID: entry.PaymentID,
		constant.FieldModifiedAt:   entry.ModifiedAt,
		constant.FieldModifiedBy:   entry.ModifiedBy,
	}

	affected, err := l.repo.ledger.UpdateTx(ctx, l.tx, fields, shared.FilterByID(entry.ID, model.LedgerFieldID, model.LedgerTableName))
	if err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	if affected == 0 {
		log.Error().Str("entryID", entry.ID).Msg("ledger entry vanished inside room transaction")

		return failure.ErrStaleRoom
	}

	return nil
}

func (l *ledgerTx) SaveState(ctx context.Context, room model.Room) (model.Room, error) {
	ctx, scope := l.repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.SaveState")
	defer scope.End()

	actor := room.ModifiedBy
	if actor == constant.Empty {
		actor = constant.SystemActorID
	}

	now := timezone.Now()
	fields := map[string]any{
		model.FieldAvailability:  room.Availability,
		model.FieldStatus:        room.Status,
		model.FieldVersion:       room.Version + 1,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: actor,
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: room.ID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{
				ArgName:  argExpectedVersion,
				Field:    model.FieldVersion,
				Value:    room.Version,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	}

	affected, err := l.repo.UpdateTx(ctx, l.tx, fields, filter)
	if err != nil {
		scope.TraceError(err)

		return room, fmt.Errorf("failed to save room state: %w", err)
	}

	if affected == 0 {
		log.Warn().Str("roomKey", room.Key).Int64("version", room.Version).Msg("room version moved, refusing to overwrite")

		return room, failure.ErrStaleRoom
	}

	room.Version++
	room.ModifiedAt = now
	room.ModifiedBy = actor

	return room, nil
}
