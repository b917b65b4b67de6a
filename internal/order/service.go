package order

import (
	"context"
	"errors"

	"storefront-be/internal/address"
	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddressBook is the slice of the address service checkout reads from.
type AddressBook interface {
	Get(ctx context.Context, addressID uuid.UUID) (*address.Address, error)
}

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceInput) (*Order, error)
	CreateGatewayOrder(ctx context.Context, input PlaceInput) (*GatewaySession, error)
	VerifyPayment(ctx context.Context, input VerifyInput) (*Order, error)
	CancelPayment(ctx context.Context, dbOrderID string) (*Order, error)

	ConfirmFromWebhook(ctx context.Context, remoteOrderID, remotePaymentID string) error
	FailFromWebhook(ctx context.Context, remoteOrderID string) error

	Get(ctx context.Context, orderID string) (*Order, error)
	ListMine(ctx context.Context) ([]Order, error)
	ListForSeller(ctx context.Context) ([]Order, error)
	SellerRevenue(ctx context.Context) (*Revenue, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, input StatusUpdate) (*Order, error)
}

type service struct {
	repo      Repository
	gateway   payment.Gateway
	addresses AddressBook
	counters  *metrics.Checkout
	currency  string
}

func NewService(
	repo Repository,
	gateway payment.Gateway,
	addresses AddressBook,
	counters *metrics.Checkout,
	currency string,
) Service {
	if counters == nil {
		counters = &metrics.Checkout{}
	}
	if currency == "" {
		currency = "INR"
	}
	return &service{
		repo:      repo,
		gateway:   gateway,
		addresses: addresses,
		counters:  counters,
		currency:  currency,
	}
}

func currentUser(ctx context.Context) (uint, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return 0, apperror.Unauthenticated()
	}
	return userID, nil
}

func parseOrderID(id string) (uuid.UUID, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.NotFound("order")
	}
	return orderID, nil
}

func (s *service) resolveAddress(ctx context.Context, input PlaceInput) (AddressSnapshot, error) {
	if input.AddressID != "" && s.addresses != nil {
		id, err := uuid.Parse(input.AddressID)
		if err != nil {
			return AddressSnapshot{}, apperror.NotFound("address")
		}
		a, err := s.addresses.Get(ctx, id)
		if err != nil {
			return AddressSnapshot{}, err
		}
		return AddressSnapshot{
			Label:      a.Label,
			Street:     a.Street,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
		}, nil
	}

	addr := input.Address
	addr.normalize()
	if utils.AnyBlank(addr.Label, addr.Street, addr.City, addr.State, addr.PostalCode) {
		return AddressSnapshot{}, apperror.Validation("address label, street, city, state and postal code are required")
	}
	return addr, nil
}

// buildOrder prices the cart snapshot. Stock is checked here for a friendly
// error; the conditional decrement at write time is what enforces it.
func (s *service) buildOrder(userID uint, snap *CartSnapshot, addr AddressSnapshot, paymentType PaymentType) (*Order, error) {
	if len(snap.Lines) == 0 {
		return nil, apperror.EmptyCart()
	}

	o := &Order{
		ID:            uuid.New(),
		UserID:        userID,
		TotalPrice:    decimal.Zero,
		Currency:      s.currency,
		Address:       addr,
		PaymentType:   paymentType,
		PaymentStatus: PaymentPending,
		OrderStatus:   StatusPending,
		CartVersion:   snap.Version,
	}

	for _, l := range snap.Lines {
		if l.Quantity > l.Stock {
			return nil, apperror.InsufficientStock(l.ProductID, l.Name)
		}
		unit := product.EffectivePrice(l.Price, l.DiscountPrice)
		o.TotalPrice = o.TotalPrice.Add(unit.Mul(decimal.NewFromInt(int64(l.Quantity))))
		o.Items = append(o.Items, LineItem{
			ProductID:     l.ProductID,
			Name:          l.Name,
			SellerID:      l.SellerID,
			UnitPrice:     unit,
			Quantity:      l.Quantity,
			ItemStatus:    StatusPending,
			PaymentStatus: PaymentPending,
		})
	}
	return o, nil
}

// place prices the cart and hands the order to create. A cart that changed
// between pricing and the locked write is reloaded once.
func (s *service) place(
	ctx context.Context,
	userID uint,
	input PlaceInput,
	paymentType PaymentType,
	create func(o *Order) (*Order, error),
) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Uint("user_id", userID),
		zap.String("payment_type", string(paymentType)),
	)

	addr, err := s.resolveAddress(ctx, input)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		snap, err := s.repo.LoadCart(ctx, userID)
		if errors.Is(err, ErrUserNotFound) {
			log.Warn("cart owner no longer exists")
			return nil, apperror.Unauthenticated()
		}
		if err != nil {
			log.Error("failed to load cart", zap.Error(err))
			return nil, apperror.Internal(err)
		}

		o, err := s.buildOrder(userID, snap, addr, paymentType)
		if err != nil {
			return nil, err
		}

		placed, err := create(o)
		if err == nil {
			return placed, nil
		}

		var stockErr *StockError
		switch {
		case errors.Is(err, ErrCartChanged) && attempt == 0:
			log.Info("cart changed during checkout, reloading")
			continue
		case errors.Is(err, ErrCartChanged):
			return nil, apperror.New(apperror.KindConflict, "cart changed during checkout, please retry")
		case errors.As(err, &stockErr):
			return nil, apperror.InsufficientStock(stockErr.ProductID, lineName(o, stockErr.ProductID))
		}

		log.Error("failed to create order", zap.Error(err))
		return nil, apperror.Internal(err)
	}
}

func lineName(o *Order, productID string) string {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return it.Name
		}
	}
	return productID
}

// PlaceOrder settles a cash-on-delivery order immediately.
func (s *service) PlaceOrder(ctx context.Context, input PlaceInput) (*Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.PaymentType == "" {
		input.PaymentType = PaymentCOD
	}
	if !input.PaymentType.Valid() {
		return nil, apperror.Validation("unknown payment type %q", input.PaymentType)
	}
	if input.PaymentType != PaymentCOD {
		return nil, apperror.Validation("gateway payments start at create-razorpay-order")
	}

	o, err := s.place(ctx, userID, input, PaymentCOD, func(o *Order) (*Order, error) {
		return o, s.repo.CreateSettled(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.counters.OrdersPlaced.Inc()
	logger.FromCtx(ctx).Info("order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("total", o.TotalPrice.String()),
	)
	return o, nil
}

// CreateGatewayOrder records a pending order and opens a remote session for
// it. Stock and cart are left alone until the payment is verified.
func (s *service) CreateGatewayOrder(ctx context.Context, input PlaceInput) (*GatewaySession, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateGatewayOrder"),
		zap.Uint("user_id", userID),
	)

	var reused bool
	o, err := s.place(ctx, userID, input, PaymentRazorpay, func(o *Order) (*Order, error) {
		existing, wasReused, err := s.repo.CreatePending(ctx, o)
		reused = wasReused
		return existing, err
	})
	if err != nil {
		return nil, err
	}
	if !reused {
		s.counters.OrdersPlaced.Inc()
	}

	amount := payment.ToMinorUnits(o.TotalPrice)
	if o.RemoteOrderID != nil {
		log.Info("reusing open payment session", zap.String("order_id", o.ID.String()))
		return s.session(o, *o.RemoteOrderID, amount), nil
	}

	remote, err := s.gateway.CreateOrder(ctx, amount, o.Currency, o.ID.String())
	if err != nil {
		s.counters.GatewayErrors.Inc()
		log.Error("failed to open payment session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}

	err = s.repo.AttachRemoteOrder(ctx, o.ID, remote.ID)
	if errors.Is(err, ErrRemoteAttached) {
		// A concurrent request won; hand out its session.
		current, gerr := s.repo.GetByID(ctx, o.ID)
		if gerr != nil || current.RemoteOrderID == nil {
			return nil, apperror.New(apperror.KindConflict, "payment session changed, please retry")
		}
		return s.session(current, *current.RemoteOrderID, amount), nil
	}
	if err != nil {
		log.Error("failed to attach remote order", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	log.Info("payment session opened",
		zap.String("order_id", o.ID.String()),
		zap.String("remote_order_id", remote.ID),
	)
	return s.session(o, remote.ID, amount), nil
}

func (s *service) session(o *Order, remoteOrderID string, amount int64) *GatewaySession {
	return &GatewaySession{
		OrderID:   remoteOrderID,
		Currency:  o.Currency,
		Amount:    amount,
		DBOrderID: o.ID,
		Key:       s.gateway.KeyID(),
	}
}

func gatewayError(err error) error {
	if errors.Is(err, payment.ErrGatewayTimeout) {
		return apperror.Wrap(apperror.KindGatewayTimeout, "payment gateway timed out, please retry", err)
	}
	return apperror.Wrap(apperror.KindGateway, "payment gateway unavailable, please retry", err)
}

func (s *service) ownOrder(ctx context.Context, userID uint, id string) (*Order, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, apperror.NotFound("order")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if o.UserID != userID {
		return nil, apperror.NotFound("order")
	}
	return o, nil
}

func (s *service) VerifyPayment(ctx context.Context, input VerifyInput) (*Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "VerifyPayment"),
		zap.String("order_id", input.DBOrderID),
	)

	if utils.AnyBlank(input.RemoteOrderID, input.RemotePaymentID, input.Signature, input.DBOrderID) {
		return nil, apperror.Validation("razorpay_order_id, razorpay_payment_id, razorpay_signature and dbOrderId are required")
	}

	o, err := s.ownOrder(ctx, userID, input.DBOrderID)
	if err != nil {
		return nil, err
	}

	if !s.gateway.VerifyPaymentSignature(input.RemoteOrderID, input.RemotePaymentID, input.Signature) {
		s.counters.SignatureRejected.Inc()
		log.Warn("payment signature rejected", zap.String("remote_order_id", input.RemoteOrderID))
		return nil, apperror.InvalidSignature()
	}
	if o.RemoteOrderID == nil || *o.RemoteOrderID != input.RemoteOrderID {
		s.counters.SignatureRejected.Inc()
		log.Warn("payment does not match order", zap.String("remote_order_id", input.RemoteOrderID))
		return nil, apperror.New(apperror.KindInvalidSignature, "payment does not belong to this order")
	}

	return s.settle(ctx, o, input.RemotePaymentID, input.Signature)
}

// settle moves a verified payment onto the order. Paid orders are returned
// untouched so repeated confirmations are no-ops.
func (s *service) settle(ctx context.Context, o *Order, paymentID, signature string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SettlePayment"),
		zap.String("order_id", o.ID.String()),
	)

	switch o.PaymentStatus {
	case PaymentPaid:
		return o, nil
	case PaymentFailed:
		return nil, apperror.Validation("payment for this order failed, start a new payment session")
	}

	res, err := s.repo.MarkPaid(ctx, o.ID, paymentID, signature)
	if errors.Is(err, ErrNotPending) {
		current, gerr := s.repo.GetByID(ctx, o.ID)
		if gerr != nil {
			return nil, apperror.Internal(gerr)
		}
		if current.PaymentStatus == PaymentPaid {
			return current, nil
		}
		return nil, apperror.Validation("payment for this order failed, start a new payment session")
	}
	if err != nil {
		log.Error("failed to record payment", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.counters.PaymentsVerified.Inc()
	switch {
	case res.Cancelled && res.ShortProductID == "":
		s.counters.RefundsRequired.Inc()
		log.Warn("payment captured for cancelled order, refund required",
			zap.String("payment_id", paymentID),
		)
	case res.Cancelled:
		s.counters.StockCancellations.Inc()
		s.counters.RefundsRequired.Inc()
		log.Warn("order cancelled after capture, refund required",
			zap.String("product_id", res.ShortProductID),
			zap.String("payment_id", paymentID),
		)
	default:
		log.Info("payment verified", zap.String("payment_id", paymentID))
	}

	updated, err := s.repo.GetByID(ctx, o.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return updated, nil
}

// CancelPayment acknowledges a dismissed checkout widget. The order stays
// pending and the cart is kept so the shopper can retry.
func (s *service) CancelPayment(ctx context.Context, dbOrderID string) (*Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	o, err := s.ownOrder(ctx, userID, dbOrderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentType != PaymentRazorpay {
		return nil, apperror.Validation("order has no payment session")
	}

	logger.FromCtx(ctx).Info("payment session dismissed",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}

func (s *service) ConfirmFromWebhook(ctx context.Context, remoteOrderID, remotePaymentID string) error {
	o, err := s.repo.GetByRemoteOrderID(ctx, remoteOrderID)
	if errors.Is(err, ErrOrderNotFound) {
		return apperror.NotFound("order")
	}
	if err != nil {
		return apperror.Internal(err)
	}

	// The failure event won the race, but the gateway still holds the money.
	if o.PaymentStatus == PaymentFailed {
		s.counters.RefundsRequired.Inc()
		logger.FromCtx(ctx).Warn("payment captured for failed order, refund required",
			zap.String("order_id", o.ID.String()),
			zap.String("payment_id", remotePaymentID),
		)
	}

	_, err = s.settle(ctx, o, remotePaymentID, "")
	return err
}

// FailFromWebhook only touches pending orders; anything else is a no-op.
func (s *service) FailFromWebhook(ctx context.Context, remoteOrderID string) error {
	o, err := s.repo.GetByRemoteOrderID(ctx, remoteOrderID)
	if errors.Is(err, ErrOrderNotFound) {
		return apperror.NotFound("order")
	}
	if err != nil {
		return apperror.Internal(err)
	}
	if o.PaymentStatus != PaymentPending {
		return nil
	}

	err = s.repo.MarkFailed(ctx, o.ID)
	if errors.Is(err, ErrNotPending) {
		return nil
	}
	if err != nil {
		return apperror.Internal(err)
	}

	s.counters.PaymentsFailed.Inc()
	logger.FromCtx(ctx).Info("payment failed", zap.String("order_id", o.ID.String()))
	return nil
}

func (s *service) Get(ctx context.Context, orderID string) (*Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if utils.GetUserRoleFromContext(ctx) != auth.RoleAdmin {
		return s.ownOrder(ctx, userID, orderID)
	}

	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, apperror.NotFound("order")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return o, nil
}

func (s *service) ListMine(ctx context.Context) ([]Order, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return orders, nil
}

func (s *service) ListForSeller(ctx context.Context) ([]Order, error) {
	sellerID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.ListForSeller(ctx, sellerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return orders, nil
}

func (s *service) SellerRevenue(ctx context.Context) (*Revenue, error) {
	sellerID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	rev, err := s.repo.SellerRevenue(ctx, sellerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return rev, nil
}

func (s *service) ListAll(ctx context.Context) ([]Order, error) {
	if _, err := currentUser(ctx); err != nil {
		return nil, err
	}
	if utils.GetUserRoleFromContext(ctx) != auth.RoleAdmin {
		return nil, apperror.Forbidden("admin access required")
	}

	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return orders, nil
}

// UpdateStatus lets admins move any order and sellers move orders that hold
// one of their products.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdate) (*Order, error) {
	actorID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrderStatus"),
		zap.String("order_id", input.OrderID),
	)

	role := utils.GetUserRoleFromContext(ctx)
	if role != auth.RoleSeller && role != auth.RoleAdmin {
		return nil, apperror.Forbidden("only sellers and admins can update orders")
	}
	if !input.Status.Valid() {
		return nil, apperror.Validation("unknown order status %q", input.Status)
	}

	id, err := parseOrderID(input.OrderID)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, apperror.NotFound("order")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if role == auth.RoleSeller {
		owns, err := s.repo.SellerOwnsOrder(ctx, id, actorID)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if !owns {
			return nil, apperror.Forbidden("order does not contain your products")
		}
	}

	if !CanTransition(o.OrderStatus, input.Status) {
		return nil, apperror.Validation("cannot move order from %s to %s", o.OrderStatus, input.Status)
	}

	err = s.repo.UpdateStatus(ctx, id, o.OrderStatus, input.Status)
	if errors.Is(err, ErrStatusConflict) {
		return nil, apperror.New(apperror.KindConflict, "order status changed, reload and retry")
	}
	if err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if input.Status == StatusCancelled && o.PaymentStatus == PaymentPaid {
		log.Warn("paid order cancelled, refund required")
	}
	log.Info("order status updated",
		zap.String("from", string(o.OrderStatus)),
		zap.String("to", string(input.Status)),
	)

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return updated, nil
}
