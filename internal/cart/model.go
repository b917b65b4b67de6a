package cart

import (
	"github.com/shopspring/decimal"
)

// Item is a cart entry joined with the live product row.
type Item struct {
	ProductID     string           `json:"productId"`
	Name          string           `json:"name"`
	Image         string           `json:"image,omitempty"`
	Quantity      int              `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	UnitPrice     decimal.Decimal  `json:"unitPrice"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Stock         int              `json:"stock"`
}

type Cart struct {
	Items   []Item          `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Version int64           `json:"version"`
}

type AddInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
