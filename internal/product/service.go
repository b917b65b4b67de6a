package product

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageSize = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Product, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	ListMine(ctx context.Context, opts ListOptions) (*ListResult, error)
	UploadImage(ctx context.Context, id string, file ImageFile) (*Product, error)
	ImagesEnabled() bool

	AddReview(ctx context.Context, productID string, input ReviewInput) (*Review, error)
	ListReviews(ctx context.Context, productID string) ([]Review, error)
	DeleteReview(ctx context.Context, productID, reviewID string) error
}

type service struct {
	repo   Repository
	images ImageStore
}

// NewService wires the catalog; images may be nil when no bucket is
// configured.
func NewService(repo Repository, images ImageStore) Service {
	return &service{repo: repo, images: images}
}

func (s *service) ImagesEnabled() bool {
	return s.images != nil
}

func validatePricing(p *Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return apperror.Validation("name cannot be empty")
	case p.Price.IsNegative():
		return apperror.Validation("price cannot be negative")
	case p.DiscountPrice != nil && p.DiscountPrice.IsNegative():
		return apperror.Validation("discount price cannot be negative")
	case p.Stock < 0:
		return apperror.Validation("stock cannot be negative")
	case !p.Status.Valid():
		return apperror.Validation("unknown status %q", p.Status)
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
	)

	sellerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	p := &Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Brand:         input.Brand,
		Category:      input.Category,
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		Status:        input.Status,
		SellerID:      sellerID,
		Images:        input.Images,
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := validatePricing(p); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	log.Info("product created",
		zap.String("product_id", created.ID),
		zap.Uint("seller_id", sellerID),
	)
	return created, nil
}

// owned loads a product the caller may modify: its seller or an admin.
func (s *service) owned(ctx context.Context, id string) (*Product, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, apperror.NotFound("product")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if p.SellerID != userID && utils.GetUserRoleFromContext(ctx) != auth.RoleAdmin {
		return nil, apperror.Forbidden("product belongs to another seller")
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*Product, error) {
	if input.empty() {
		return nil, apperror.Validation("no fields to update")
	}

	p, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Brand != nil {
		p.Brand = *input.Brand
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.ClearDiscount {
		p.DiscountPrice = nil
	} else if input.DiscountPrice != nil {
		p.DiscountPrice = input.DiscountPrice
	}
	if input.Stock != nil {
		p.Stock = *input.Stock
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if err := validatePricing(p); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, p)
	if errors.Is(err, ErrProductNotFound) {
		return nil, apperror.NotFound("product")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}

	err := s.repo.SoftDelete(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return apperror.NotFound("product")
	}
	if err != nil {
		return apperror.Internal(err)
	}

	logger.FromCtx(ctx).Info("product deleted",
		zap.String("layer", "service"),
		zap.String("product_id", id),
	)
	return nil
}

// Get hides non-active products from everyone but their seller and admins.
func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, apperror.NotFound("product")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if p.Status != StatusActive {
		userID, _ := utils.GetUserIDFromContext(ctx)
		if p.SellerID != userID && utils.GetUserRoleFromContext(ctx) != auth.RoleAdmin {
			return nil, apperror.NotFound("product")
		}
	}
	return p, nil
}

func normalizePage(opts *ListOptions) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	} else if opts.Limit > 100 {
		opts.Limit = 100
	}
}

func (s *service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	opts.AllStatuses = false
	return s.list(ctx, opts)
}

func (s *service) ListMine(ctx context.Context, opts ListOptions) (*ListResult, error) {
	sellerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}
	opts.SellerID = sellerID
	opts.AllStatuses = true
	return s.list(ctx, opts)
}

func (s *service) list(ctx context.Context, opts ListOptions) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
	)
	start := time.Now()
	normalizePage(&opts)

	items, total, err := s.repo.List(ctx, opts)
	if err != nil {
		log.Error("failed to fetch product list",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, apperror.Internal(err)
	}

	log.Debug("product list fetched",
		zap.Int("count", len(items)),
		zap.Int("total", total),
		zap.Int("page", opts.Page),
		zap.Duration("duration", time.Since(start)),
	)

	return &ListResult{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

func (s *service) UploadImage(ctx context.Context, id string, file ImageFile) (*Product, error) {
	if s.images == nil {
		return nil, apperror.NotFound("image storage")
	}
	if file.Size > maxImageSize {
		return nil, apperror.Validation("image exceeds %d MB", maxImageSize>>20)
	}

	if _, err := s.owned(ctx, id); err != nil {
		return nil, err
	}

	br := bufio.NewReader(file.Body)
	head, err := br.Peek(512)
	if err != nil && len(head) == 0 {
		return nil, apperror.Validation("image is empty")
	}
	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, apperror.Validation("unsupported image type %s", contentType)
	}
	if fileExt := strings.ToLower(filepath.Ext(file.Filename)); fileExt == ".jpeg" && ext == ".jpg" {
		ext = fileExt
	}

	key := "products/" + id + "/" + uuid.NewString() + ext
	url, err := s.images.Put(ctx, key, contentType, br)
	if err != nil {
		logger.FromCtx(ctx).Error("image upload failed",
			zap.String("layer", "service"),
			zap.String("product_id", id),
			zap.Error(err),
		)
		return nil, apperror.Wrap(apperror.KindGateway, "image upload failed", err)
	}

	updated, err := s.repo.AppendImages(ctx, id, []string{url})
	if errors.Is(err, ErrProductNotFound) {
		return nil, apperror.NotFound("product")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return updated, nil
}

// AddReview records one rating per user per product and returns the stored
// review with its author.
func (s *service) AddReview(ctx context.Context, productID string, input ReviewInput) (*Review, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddReview"),
		zap.String("product_id", productID),
	)

	if input.Rating < MinRating || input.Rating > MaxRating {
		return nil, apperror.Validation("rating must be between %d and %d", MinRating, MaxRating)
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, apperror.Validation("comment exceeds %d characters", maxCommentLength)
	}

	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}

	rv, err := s.repo.AddReview(ctx, &Review{
		ProductID: productID,
		User:      ReviewAuthor{ID: userID},
		Rating:    input.Rating,
		Comment:   comment,
	})
	if errors.Is(err, ErrAlreadyReviewed) {
		return nil, apperror.Validation("you have already reviewed this product")
	}
	if err != nil {
		log.Error("failed to add review", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	stored, err := s.repo.GetReview(ctx, productID, rv.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	log.Info("review added", zap.Int64("review_id", stored.ID), zap.Int("rating", stored.Rating))
	return stored, nil
}

func (s *service) ListReviews(ctx context.Context, productID string) ([]Review, error) {
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}

	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return reviews, nil
}

// DeleteReview lets the author or an admin remove a review.
func (s *service) DeleteReview(ctx context.Context, productID, reviewID string) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return apperror.Unauthenticated()
	}

	id, err := strconv.ParseInt(reviewID, 10, 64)
	if err != nil || id <= 0 {
		return apperror.NotFound("review")
	}
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return apperror.NotFound("product")
		}
		return apperror.Internal(err)
	}

	rv, err := s.repo.GetReview(ctx, productID, id)
	if errors.Is(err, ErrReviewNotFound) {
		return apperror.NotFound("review")
	}
	if err != nil {
		return apperror.Internal(err)
	}
	if rv.User.ID != userID && utils.GetUserRoleFromContext(ctx) != auth.RoleAdmin {
		return apperror.Forbidden("not authorized to delete this review")
	}

	err = s.repo.DeleteReview(ctx, productID, id)
	if errors.Is(err, ErrReviewNotFound) {
		return apperror.NotFound("review")
	}
	if err != nil {
		return apperror.Internal(err)
	}

	logger.FromCtx(ctx).Info("review deleted",
		zap.String("layer", "service"),
		zap.String("product_id", productID),
		zap.Int64("review_id", id),
	)
	return nil
}
