// Package apperror is the HTTP-facing error taxonomy shared by services and
// handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindEmptyCart
	KindInsufficientStock
	KindNotFound
	KindAuthorization
	KindUnauthenticated
	KindConflict
	KindGateway
	KindGatewayTimeout
	KindInvalidSignature
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindEmptyCart:
		return "EmptyCartError"
	case KindInsufficientStock:
		return "InsufficientStockError"
	case KindNotFound:
		return "NotFoundError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindUnauthenticated:
		return "UnauthenticatedError"
	case KindConflict:
		return "ConflictError"
	case KindGateway, KindGatewayTimeout:
		return "GatewayError"
	case KindInvalidSignature:
		return "InvalidSignatureError"
	default:
		return "InternalError"
	}
}

// Status is the HTTP status a Kind is rendered with.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindEmptyCart, KindInsufficientStock, KindInvalidSignature:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	case KindGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	// ProductID is set for KindInsufficientStock.
	ProductID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may repeat the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindGateway || e.Kind == KindGatewayTimeout || e.Kind == KindConflict
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(what string) *Error {
	return New(KindNotFound, what+" not found")
}

func Forbidden(msg string) *Error {
	return New(KindAuthorization, msg)
}

func Unauthenticated() *Error {
	return New(KindUnauthenticated, "authentication required")
}

func EmptyCart() *Error {
	return New(KindEmptyCart, "cart is empty")
}

func InsufficientStock(productID, productName string) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for %s", productName),
		ProductID: productID,
	}
}

func InvalidSignature() *Error {
	return New(KindInvalidSignature, "invalid payment signature")
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal server error", err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
