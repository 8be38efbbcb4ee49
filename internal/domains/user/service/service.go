package service

import (
	"context"
	"fmt"
	"lodge/infras/otel"
	"lodge/internal/domains/user/model"
	"lodge/internal/domains/user/repository"
	"lodge/shared"
	"lodge/shared/constant"

	"github.com/rs/zerolog/log"
)

type User interface {
	// Contact snapshots the caller's contact details. A caller without a users row
	// gets a snapshot built from the token alone.
	Contact(ctx context.Context, identity shared.Identity) (model.Contact, error)
}

type serviceImpl struct {
	repo repository.User
	otel otel.Otel
}

func New(repo repository.User, otel otel.Otel) User {
	return &serviceImpl{
		repo: repo,
		otel: otel,
	}
}

func (s *serviceImpl) Contact(ctx context.Context, identity shared.Identity) (res model.Contact, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".user.Contact")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	fallback := model.Contact{UserID: identity.UserID, Name: identity.Email, Email: identity.Email}

	if identity.UserID == constant.Empty {
		return fallback, nil
	}

	user, found, err := s.repo.Get(ctx, shared.FilterByID(identity.UserID, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("userID", identity.UserID).Msg("failed to get user")

		return res, fmt.Errorf("failed to get user: %w", err)
	}

	if !found {
		log.Warn().Str("userID", identity.UserID).Msg("user row missing, using token contact")

		return fallback, nil
	}

	return user.Contact(), nil
}
