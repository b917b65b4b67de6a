package payment

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const ProviderRazorpay = "razorpay"

type RemoteOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Confirmation is what the checkout widget hands back after a payment.
type Confirmation struct {
	RemoteOrderID   string `json:"razorpay_order_id"`
	RemotePaymentID string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
}

// WebhookRecord is a stored inbound event.
type WebhookRecord struct {
	Provider       string
	EventID        string
	EventType      string
	RemoteOrderID  string
	SignatureValid bool
	Payload        json.RawMessage
}

// ToMinorUnits converts a rupee amount to paise, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
