package cart

import (
	"context"
	"errors"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// ProductLookup is the slice of the catalog the cart needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

type Service interface {
	Get(ctx context.Context) (*Cart, error)
	Add(ctx context.Context, input AddInput) (*Cart, error)
	UpdateQuantity(ctx context.Context, input AddInput) (*Cart, error)
	Remove(ctx context.Context, productID string) (*Cart, error)
	Clear(ctx context.Context) error
}

type service struct {
	repo     Repository
	products ProductLookup
}

func NewService(repo Repository, products ProductLookup) Service {
	return &service{repo: repo, products: products}
}

func currentUser(ctx context.Context) (uint, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return 0, apperror.Unauthenticated()
	}
	return userID, nil
}

func (s *service) Get(ctx context.Context) (*Cart, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return c, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddToCart"),
	)

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}

	p, err := s.products.GetByID(ctx, input.ProductID)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil, apperror.NotFound("product")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if p.Status != product.StatusActive {
		return nil, apperror.Validation("%s is not available", p.Name)
	}

	if err := s.repo.Add(ctx, userID, p.ID, input.Quantity); err != nil {
		log.Error("failed to add cart item", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	return s.Get(ctx)
}

func (s *service) UpdateQuantity(ctx context.Context, input AddInput) (*Cart, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}

	if err := s.repo.UpdateQuantity(ctx, userID, input.ProductID, input.Quantity); err != nil {
		return nil, translate(err)
	}
	return s.Get(ctx)
}

func (s *service) Remove(ctx context.Context, productID string) (*Cart, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, translate(err)
	}
	return s.Get(ctx)
}

func (s *service) Clear(ctx context.Context) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.Clear(ctx, userID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, ErrCartItemNotFound):
		return apperror.NotFound("cart item")
	case errors.Is(err, ErrInvalidQuantity):
		return apperror.Validation("quantity must be at least 1")
	}
	return apperror.Internal(err)
}
