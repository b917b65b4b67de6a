package product

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusDraft      Status = "draft"
	StatusOutOfStock Status = "out-of-stock"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDraft, StatusOutOfStock:
		return true
	}
	return false
}

type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Brand         string           `json:"brand"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Stock         int              `json:"stock"`
	Status        Status           `json:"status"`
	SellerID      uint             `json:"sellerId"`
	Images        []string         `json:"images"`
	AverageRating decimal.Decimal  `json:"averageRating"`
	ReviewCount   int              `json:"reviewCount"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// EffectivePrice is the discount price when 0 <= discount < price, else the
// list price.
func EffectivePrice(price decimal.Decimal, discount *decimal.Decimal) decimal.Decimal {
	if discount != nil && !discount.IsNegative() && discount.LessThan(price) {
		return *discount
	}
	return price
}

func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.DiscountPrice)
}

type CreateInput struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Brand         string           `json:"brand"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	Stock         int              `json:"stock"`
	Status        Status           `json:"status"`
	Images        []string         `json:"images"`
}

// UpdateInput carries only the fields being changed.
type UpdateInput struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Brand         *string          `json:"brand"`
	Category      *string          `json:"category"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	ClearDiscount bool             `json:"clearDiscount"`
	Stock         *int             `json:"stock"`
	Status        *Status          `json:"status"`
}

func (in UpdateInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Brand == nil &&
		in.Category == nil && in.Price == nil && in.DiscountPrice == nil &&
		!in.ClearDiscount && in.Stock == nil && in.Status == nil
}

type ListOptions struct {
	Page     int
	Limit    int
	Search   string
	Category string
	SellerID uint
	// AllStatuses lists drafts and out-of-stock products as well.
	AllStatuses bool
}

type ListResult struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

const (
	MinRating        = 1
	MaxRating        = 5
	maxCommentLength = 2000
)

// ReviewAuthor is the public part of the reviewer's account.
type ReviewAuthor struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Review struct {
	ID        int64        `json:"id"`
	ProductID string       `json:"productId"`
	User      ReviewAuthor `json:"user"`
	Rating    int          `json:"rating"`
	Comment   string       `json:"comment"`
	CreatedAt time.Time    `json:"createdAt"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ImageFile struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}
