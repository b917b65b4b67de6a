package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartChanged means the cart version moved between pricing and placement.
	ErrCartChanged       = errors.New("cart changed during checkout")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotPending is returned by payment transitions that lost the race.
	ErrNotPending     = errors.New("payment is not pending")
	ErrStatusConflict = errors.New("order status changed concurrently")
	ErrRemoteAttached = errors.New("remote order already attached")
	// ErrUserNotFound means the token outlived its account.
	ErrUserNotFound = errors.New("user not found")
)

// StockError names the product whose conditional decrement failed.
type StockError struct {
	ProductID string
}

func (e *StockError) Error() string {
	return "insufficient stock for product " + e.ProductID
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
