package address

import (
	"context"
	"errors"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context) ([]Address, error)
	Get(ctx context.Context, addressID uuid.UUID) (*Address, error)
	Create(ctx context.Context, input Input) (*Address, error)
	Update(ctx context.Context, addressID uuid.UUID, input Input) (*Address, error)
	Delete(ctx context.Context, addressID uuid.UUID) error
	SetDefault(ctx context.Context, addressID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Validate reports the first blank required field.
func Validate(in Input) error {
	in.normalize()
	if utils.AnyBlank(in.Label, in.Street, in.City, in.State, in.PostalCode) {
		return apperror.Validation("label, street, city, state and postal code are required")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, addressID uuid.UUID) (*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	a, err := s.repo.Get(ctx, userID, addressID)
	return a, translate(err)
}

func (s *service) Create(ctx context.Context, input Input) (*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	input.normalize()
	if err := Validate(input); err != nil {
		return nil, err
	}

	a, err := s.repo.Create(ctx, &Address{
		UserID:     userID,
		Label:      input.Label,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		IsDefault:  input.SetAsDefault,
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to create address",
			zap.String("layer", "service"),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, apperror.Internal(err)
	}
	return a, nil
}

func (s *service) Update(ctx context.Context, addressID uuid.UUID, input Input) (*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	input.normalize()
	if err := Validate(input); err != nil {
		return nil, err
	}

	a, err := s.repo.Update(ctx, &Address{
		ID:         addressID,
		UserID:     userID,
		Label:      input.Label,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
	})
	if err != nil {
		return nil, translate(err)
	}

	if input.SetAsDefault && !a.IsDefault {
		if err := s.repo.SetDefault(ctx, userID, addressID); err != nil {
			return nil, translate(err)
		}
		a.IsDefault = true
	}
	return a, nil
}

func (s *service) Delete(ctx context.Context, addressID uuid.UUID) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return apperror.Unauthenticated()
	}
	return translate(s.repo.Delete(ctx, userID, addressID))
}

func (s *service) SetDefault(ctx context.Context, addressID uuid.UUID) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return apperror.Unauthenticated()
	}
	return translate(s.repo.SetDefault(ctx, userID, addressID))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAddressNotFound) {
		return apperror.NotFound("address")
	}
	return apperror.Internal(err)
}
