package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentRazorpay PaymentType = "Razorpay"
	PaymentCOD      PaymentType = "COD"
)

func (t PaymentType) Valid() bool {
	return t == PaymentRazorpay || t == PaymentCOD
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// AddressSnapshot is copied onto the order row at placement.
type AddressSnapshot struct {
	Label      string `json:"label"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

func (a *AddressSnapshot) normalize() {
	a.Label = strings.TrimSpace(a.Label)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
}

type LineItem struct {
	ID            int64           `json:"id"`
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	SellerID      uint            `json:"sellerId"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	ItemStatus    Status          `json:"itemStatus"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uint            `json:"userId"`
	Items           []LineItem      `json:"items"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Currency        string          `json:"currency"`
	Address         AddressSnapshot `json:"address"`
	PaymentType     PaymentType     `json:"paymentType"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	OrderStatus     Status          `json:"orderStatus"`
	CartVersion     int64           `json:"-"`
	RemoteOrderID   *string         `json:"razorpayOrderId,omitempty"`
	RemotePaymentID *string         `json:"razorpayPaymentId,omitempty"`
	RemoteSignature *string         `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CartLine is a cart entry joined with the live product row at checkout.
type CartLine struct {
	ProductID     string
	Name          string
	SellerID      uint
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	Quantity      int
}

// CartSnapshot is the priced cart plus the version it was read at.
type CartSnapshot struct {
	Version int64
	Lines   []CartLine
}

type PlaceInput struct {
	PaymentType PaymentType     `json:"paymentType"`
	Address     AddressSnapshot `json:"address"`
	// AddressID copies an entry from the address book instead.
	AddressID string `json:"addressId,omitempty"`
}

// GatewaySession is what the client needs to open the checkout widget.
type GatewaySession struct {
	OrderID   string    `json:"orderId"`
	Currency  string    `json:"currency"`
	Amount    int64     `json:"amount"`
	DBOrderID uuid.UUID `json:"dbOrderId"`
	Key       string    `json:"key"`
}

type VerifyInput struct {
	RemoteOrderID   string `json:"razorpay_order_id"`
	RemotePaymentID string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
	DBOrderID       string `json:"dbOrderId"`
}

type StatusUpdate struct {
	OrderID string `json:"orderId"`
	Status  Status `json:"status"`
}

type Revenue struct {
	SellerID uint            `json:"sellerId"`
	Total    decimal.Decimal `json:"totalRevenue"`
	Orders   int             `json:"orders"`
}

// SettleResult reports what a verified payment did to the order.
type SettleResult struct {
	// Cancelled is set when the order will not ship: either it was cancelled
	// before the capture landed or stock could not cover it afterwards.
	Cancelled bool
	// ShortProductID names the first product that ran out. Empty when the
	// order had already been cancelled.
	ShortProductID string
}
