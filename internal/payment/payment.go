package payment

import (
	"context"
	"errors"
)

// Gateway is the remote payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*RemoteOrder, error)
	VerifyPaymentSignature(remoteOrderID, remotePaymentID, signature string) bool
	KeyID() string
}

var (
	ErrGatewayTimeout     = errors.New("payment gateway timed out")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
)
