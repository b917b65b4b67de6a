package wishlist

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID     string           `json:"productId"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Image         string           `json:"image,omitempty"`
	AddedAt       time.Time        `json:"addedAt"`
}
