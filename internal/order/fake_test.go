package order

import (
	"context"
	"sync"

	"storefront-be/internal/address"
	"storefront-be/internal/apperror"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type fakeProduct struct {
	Name     string
	SellerID uint
	Price    decimal.Decimal
	Discount *decimal.Decimal
	Stock    int
	Deleted  bool
}

type fakeEntry struct {
	ProductID string
	Quantity  int
}

// fakeStore is an in-memory Repository with the same atomicity as the SQL
// one: every method runs under a single lock.
type fakeStore struct {
	mu       sync.Mutex
	versions map[uint]int64
	carts    map[uint][]fakeEntry
	products map[string]*fakeProduct
	orders   map[uuid.UUID]*Order
	order    []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		versions: map[uint]int64{},
		carts:    map[uint][]fakeEntry{},
		products: map[string]*fakeProduct{},
		orders:   map[uuid.UUID]*Order{},
	}
}

func (f *fakeStore) addToCart(userID uint, productID string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = append(f.carts[userID], fakeEntry{ProductID: productID, Quantity: qty})
	f.versions[userID]++
}

func (f *fakeStore) stock(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].Stock
}

func (f *fakeStore) cartLen(userID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.carts[userID])
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	return &c
}

func (f *fakeStore) LoadCart(ctx context.Context, userID uint) (*CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := &CartSnapshot{Version: f.versions[userID]}
	for _, e := range f.carts[userID] {
		p, ok := f.products[e.ProductID]
		if !ok || p.Deleted {
			continue
		}
		snap.Lines = append(snap.Lines, CartLine{
			ProductID:     e.ProductID,
			Name:          p.Name,
			SellerID:      p.SellerID,
			Price:         p.Price,
			DiscountPrice: p.Discount,
			Stock:         p.Stock,
			Quantity:      e.Quantity,
		})
	}
	return snap, nil
}

func (f *fakeStore) decrement(items []LineItem) error {
	for _, it := range items {
		if f.products[it.ProductID].Stock < it.Quantity {
			return &StockError{ProductID: it.ProductID}
		}
	}
	for _, it := range items {
		f.products[it.ProductID].Stock -= it.Quantity
	}
	return nil
}

func (f *fakeStore) clear(userID uint, items []LineItem) {
	ordered := map[string]bool{}
	for _, it := range items {
		ordered[it.ProductID] = true
	}
	kept := f.carts[userID][:0]
	for _, e := range f.carts[userID] {
		if !ordered[e.ProductID] {
			kept = append(kept, e)
		}
	}
	f.carts[userID] = kept
	f.versions[userID]++
}

func (f *fakeStore) insert(o *Order) {
	for i := range o.Items {
		o.Items[i].ID = int64(len(f.orders)*100 + i + 1)
	}
	f.orders[o.ID] = cloneOrder(o)
	f.order = append(f.order, o.ID)
}

func (f *fakeStore) CreateSettled(ctx context.Context, o *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.versions[o.UserID] != o.CartVersion {
		return ErrCartChanged
	}
	if err := f.decrement(o.Items); err != nil {
		return err
	}
	f.insert(o)
	f.clear(o.UserID, o.Items)
	return nil
}

func (f *fakeStore) CreatePending(ctx context.Context, o *Order) (*Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.versions[o.UserID] != o.CartVersion {
		return nil, false, ErrCartChanged
	}
	for _, id := range f.order {
		existing := f.orders[id]
		if existing.UserID == o.UserID && existing.CartVersion == o.CartVersion &&
			existing.PaymentType == PaymentRazorpay && existing.OrderStatus == StatusPending &&
			existing.PaymentStatus != PaymentPaid {
			if existing.PaymentStatus == PaymentFailed {
				existing.PaymentStatus = PaymentPending
				existing.RemoteOrderID = nil
			}
			return cloneOrder(existing), true, nil
		}
	}
	f.insert(o)
	return o, false, nil
}

func (f *fakeStore) AttachRemoteOrder(ctx context.Context, orderID uuid.UUID, remoteOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o := f.orders[orderID]
	if o.PaymentStatus != PaymentPending || o.RemoteOrderID != nil {
		return ErrRemoteAttached
	}
	o.RemoteOrderID = &remoteOrderID
	return nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, signature string) (*SettleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o := f.orders[orderID]
	if o.PaymentStatus != PaymentPending {
		return nil, ErrNotPending
	}
	o.PaymentStatus = PaymentPaid
	o.RemotePaymentID = &paymentID
	if signature != "" {
		o.RemoteSignature = &signature
	}
	for i := range o.Items {
		o.Items[i].PaymentStatus = PaymentPaid
	}
	if o.OrderStatus == StatusCancelled {
		return &SettleResult{Cancelled: true}, nil
	}

	if err := f.decrement(o.Items); err != nil {
		o.OrderStatus = StatusCancelled
		for i := range o.Items {
			o.Items[i].ItemStatus = StatusCancelled
		}
		return &SettleResult{Cancelled: true, ShortProductID: err.(*StockError).ProductID}, nil
	}
	f.clear(o.UserID, o.Items)
	return &SettleResult{}, nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o := f.orders[orderID]
	if o.PaymentStatus != PaymentPending {
		return ErrNotPending
	}
	o.PaymentStatus = PaymentFailed
	return nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o := f.orders[orderID]
	if o.OrderStatus != from {
		return ErrStatusConflict
	}
	o.OrderStatus = to
	for i := range o.Items {
		o.Items[i].ItemStatus = to
	}
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeStore) GetByRemoteOrderID(ctx context.Context, remoteOrderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.orders {
		if o.RemoteOrderID != nil && *o.RemoteOrderID == remoteOrderID {
			return cloneOrder(o), nil
		}
	}
	return nil, ErrOrderNotFound
}

func (f *fakeStore) filter(keep func(*Order) bool) []Order {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Order{}
	for i := len(f.order) - 1; i >= 0; i-- {
		if o := f.orders[f.order[i]]; keep(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out
}

func (f *fakeStore) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	return f.filter(func(o *Order) bool { return o.UserID == userID }), nil
}

func (f *fakeStore) ListForSeller(ctx context.Context, sellerID uint) ([]Order, error) {
	owns := func(o *Order) bool {
		for _, it := range o.Items {
			if it.SellerID == sellerID {
				return true
			}
		}
		return false
	}
	return f.filter(owns), nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]Order, error) {
	return f.filter(func(*Order) bool { return true }), nil
}

func (f *fakeStore) SellerOwnsOrder(ctx context.Context, orderID uuid.UUID, sellerID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, it := range f.orders[orderID].Items {
		if it.SellerID == sellerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SellerRevenue(ctx context.Context, sellerID uint) (*Revenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rev := &Revenue{SellerID: sellerID, Total: decimal.Zero}
	for _, o := range f.orders {
		if o.PaymentStatus != PaymentPaid || o.OrderStatus != StatusDelivered {
			continue
		}
		counted := false
		for _, it := range o.Items {
			if it.SellerID != sellerID {
				continue
			}
			rev.Total = rev.Total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			if !counted {
				rev.Orders++
				counted = true
			}
		}
	}
	return rev, nil
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*payment.RemoteOrder, error) {
	args := m.Called(ctx, amountMinor, currency, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RemoteOrder), args.Error(1)
}

func (m *MockGateway) VerifyPaymentSignature(remoteOrderID, remotePaymentID, signature string) bool {
	return m.Called(remoteOrderID, remotePaymentID, signature).Bool(0)
}

func (m *MockGateway) KeyID() string {
	return "rzp_test_key"
}

type fakeAddressBook map[uuid.UUID]*address.Address

func (b fakeAddressBook) Get(ctx context.Context, id uuid.UUID) (*address.Address, error) {
	a, ok := b[id]
	if !ok {
		return nil, apperror.NotFound("address")
	}
	c := *a
	return &c, nil
}
