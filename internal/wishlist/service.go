package wishlist

import (
	"context"
	"errors"

	"storefront-be/internal/apperror"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"
)

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

type Service interface {
	Add(ctx context.Context, productID string) ([]Item, error)
	Remove(ctx context.Context, productID string) ([]Item, error)
	List(ctx context.Context) ([]Item, error)
}

type service struct {
	repo     Repository
	products ProductLookup
}

func NewService(repo Repository, products ProductLookup) Service {
	return &service{repo: repo, products: products}
}

func (s *service) Add(ctx context.Context, productID string) ([]Item, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, apperror.Internal(err)
	}

	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return nil, apperror.Internal(err)
	}
	return s.List(ctx)
}

func (s *service) Remove(ctx context.Context, productID string) ([]Item, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	removed, err := s.repo.Remove(ctx, userID, productID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !removed {
		return nil, apperror.NotFound("wishlist item")
	}
	return s.List(ctx)
}

func (s *service) List(ctx context.Context) ([]Item, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return items, nil
}
