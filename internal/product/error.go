package product

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrReviewNotFound  = errors.New("review not found")
	// ErrAlreadyReviewed is returned when the user has a review on the product.
	ErrAlreadyReviewed = errors.New("product already reviewed")
)
