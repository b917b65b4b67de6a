package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	LoadCart(ctx context.Context, userID uint) (*CartSnapshot, error)

	// CreateSettled inserts a COD order, decrements stock and clears the cart
	// in one transaction guarded by the cart version.
	CreateSettled(ctx context.Context, o *Order) error

	// CreatePending inserts a gateway order guarded by the cart version. An
	// open order built from the same cart version is returned instead when
	// one exists (reused = true).
	CreatePending(ctx context.Context, o *Order) (existing *Order, reused bool, err error)

	AttachRemoteOrder(ctx context.Context, orderID uuid.UUID, remoteOrderID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, signature string) (*SettleResult, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error

	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetByRemoteOrderID(ctx context.Context, remoteOrderID string) (*Order, error)
	ListByUser(ctx context.Context, userID uint) ([]Order, error)
	ListForSeller(ctx context.Context, sellerID uint) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	SellerOwnsOrder(ctx context.Context, orderID uuid.UUID, sellerID uint) (bool, error)
	SellerRevenue(ctx context.Context, sellerID uint) (*Revenue, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, user_id, total_price, currency,
	address_label, address_street, address_city, address_state, address_postal_code,
	payment_type, payment_status, order_status, cart_version,
	razorpay_order_id, razorpay_payment_id, razorpay_signature,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var remoteOrder, remotePayment, signature sql.NullString
	err := row.Scan(
		&o.ID, &o.UserID, &o.TotalPrice, &o.Currency,
		&o.Address.Label, &o.Address.Street, &o.Address.City, &o.Address.State, &o.Address.PostalCode,
		&o.PaymentType, &o.PaymentStatus, &o.OrderStatus, &o.CartVersion,
		&remoteOrder, &remotePayment, &signature,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.RemoteOrderID = nullable(remoteOrder)
	o.RemotePaymentID = nullable(remotePayment)
	o.RemoteSignature = nullable(signature)
	o.Items = []LineItem{}
	return &o, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// LoadCart skips entries whose product is missing or soft-deleted.
func (r *repository) LoadCart(ctx context.Context, userID uint) (*CartSnapshot, error) {
	snap := &CartSnapshot{}

	err := r.db.QueryRowContext(ctx,
		`SELECT cart_version FROM users WHERE id = $1`, userID,
	).Scan(&snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart version: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.product_id, c.quantity, p.name, p.seller_id, p.price, p.discount_price, p.stock
		FROM cart_items c
		JOIN products p ON p.id = c.product_id AND p.deleted_at IS NULL
		WHERE c.user_id = $1
		ORDER BY c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l CartLine
		var discount decimal.NullDecimal
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Name, &l.SellerID, &l.Price, &discount, &l.Stock); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if discount.Valid {
			l.DiscountPrice = &discount.Decimal
		}
		snap.Lines = append(snap.Lines, l)
	}
	return snap, rows.Err()
}

// lockCartVersion holds the user row until the transaction ends.
func lockCartVersion(ctx context.Context, tx *sql.Tx, userID uint, expected int64) error {
	var current int64
	if err := tx.QueryRowContext(ctx,
		`SELECT cart_version FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&current); err != nil {
		return fmt.Errorf("lock cart version: %w", err)
	}
	if current != expected {
		return ErrCartChanged
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *Order) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, user_id, total_price, currency,
			address_label, address_street, address_city, address_state, address_postal_code,
			payment_type, payment_status, order_status, cart_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.TotalPrice, o.Currency,
		o.Address.Label, o.Address.Street, o.Address.City, o.Address.State, o.Address.PostalCode,
		o.PaymentType, o.PaymentStatus, o.OrderStatus, o.CartVersion,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, seller_id,
				unit_price, quantity, item_status, payment_status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			o.ID, it.ProductID, it.Name, it.SellerID,
			it.UnitPrice, it.Quantity, it.ItemStatus, it.PaymentStatus,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// decrementStock walks products in id order so concurrent checkouts lock
// rows in the same sequence.
func decrementStock(ctx context.Context, tx *sql.Tx, items []LineItem) error {
	sorted := make([]LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, it := range sorted {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			it.Quantity, it.ProductID,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &StockError{ProductID: it.ProductID}
		}
	}
	return nil
}

func productIDs(items []LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func clearCartItems(ctx context.Context, tx *sql.Tx, userID uint, productIDs []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`,
		userID, pq.Array(productIDs),
	); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET cart_version = cart_version + 1 WHERE id = $1`, userID,
	); err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}
	return nil
}

func (r *repository) CreateSettled(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockCartVersion(ctx, tx, o.UserID, o.CartVersion); err != nil {
			return err
		}
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}
		if err := decrementStock(ctx, tx, o.Items); err != nil {
			return err
		}
		return clearCartItems(ctx, tx, o.UserID, productIDs(o.Items))
	})
}

func (r *repository) CreatePending(ctx context.Context, o *Order) (*Order, bool, error) {
	var reuseID uuid.UUID

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockCartVersion(ctx, tx, o.UserID, o.CartVersion); err != nil {
			return err
		}

		var status PaymentStatus
		err := tx.QueryRowContext(ctx, `
			SELECT id, payment_status FROM orders
			WHERE user_id = $1 AND cart_version = $2 AND payment_type = $3
			  AND payment_status IN ('pending', 'failed') AND order_status = 'Pending'
			ORDER BY created_at DESC
			LIMIT 1`,
			o.UserID, o.CartVersion, PaymentRazorpay,
		).Scan(&reuseID, &status)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			return insertOrder(ctx, tx, o)
		case err != nil:
			return fmt.Errorf("find open order: %w", err)
		}

		if status == PaymentFailed {
			// A new session starts from a clean slate.
			if _, err := tx.ExecContext(ctx, `
				UPDATE orders SET payment_status = 'pending', razorpay_order_id = NULL, updated_at = NOW()
				WHERE id = $1 AND payment_status = 'failed'`, reuseID); err != nil {
				return fmt.Errorf("reset failed order: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE order_items SET payment_status = 'pending' WHERE order_id = $1`, reuseID); err != nil {
				return fmt.Errorf("reset failed items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if reuseID == uuid.Nil {
		return o, false, nil
	}

	existing, err := r.GetByID(ctx, reuseID)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *repository) AttachRemoteOrder(ctx context.Context, orderID uuid.UUID, remoteOrderID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET razorpay_order_id = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND razorpay_order_id IS NULL`,
		orderID, remoteOrderID,
	)
	if err != nil {
		return fmt.Errorf("attach remote order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRemoteAttached
	}
	return nil
}

// MarkPaid records a captured payment. When stock can no longer cover the
// order the decrement is rolled back, the payment stays recorded and the
// order is cancelled for an out-of-band refund. An order cancelled before the
// capture keeps its stock and the cart is left alone.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, signature string) (*SettleResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "MarkPaid"),
		zap.String("order_id", orderID.String()),
	)

	result := &SettleResult{}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID uint
		var status Status
		err := tx.QueryRowContext(ctx, `
			UPDATE orders
			SET payment_status = 'paid', razorpay_payment_id = $2,
			    razorpay_signature = NULLIF($3, ''), updated_at = NOW()
			WHERE id = $1 AND payment_status = 'pending'
			RETURNING user_id, order_status`,
			orderID, paymentID, signature,
		).Scan(&userID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotPending
		}
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE order_items SET payment_status = 'paid' WHERE order_id = $1`, orderID); err != nil {
			return fmt.Errorf("mark items paid: %w", err)
		}

		if status == StatusCancelled {
			log.Warn("payment captured for cancelled order, refund required",
				zap.String("payment_id", paymentID),
			)
			result.Cancelled = true
			return nil
		}

		items, err := orderQuantities(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `SAVEPOINT stock_decrement`); err != nil {
			return err
		}

		err = decrementStock(ctx, tx, items)
		var stockErr *StockError
		switch {
		case errors.As(err, &stockErr):
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT stock_decrement`); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE orders SET order_status = 'Cancelled', updated_at = NOW() WHERE id = $1`, orderID); err != nil {
				return fmt.Errorf("cancel order: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE order_items SET item_status = 'Cancelled' WHERE order_id = $1`, orderID); err != nil {
				return fmt.Errorf("cancel items: %w", err)
			}
			log.Warn("paid order cancelled for insufficient stock, refund required",
				zap.String("product_id", stockErr.ProductID),
				zap.String("payment_id", paymentID),
			)
			result.Cancelled = true
			result.ShortProductID = stockErr.ProductID
			return nil
		case err != nil:
			return err
		}

		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT stock_decrement`); err != nil {
			return err
		}
		return clearCartItems(ctx, tx, userID, productIDs(items))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func orderQuantities(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) ([]LineItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET payment_status = 'failed', updated_at = NOW()
			WHERE id = $1 AND payment_status = 'pending'`, orderID)
		if err != nil {
			return fmt.Errorf("mark order failed: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotPending
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE order_items SET payment_status = 'failed' WHERE order_id = $1`, orderID)
		return err
	})
}

// UpdateStatus is a compare-and-set on the current order status; line items
// follow the order.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET order_status = $3, updated_at = NOW()
			WHERE id = $1 AND order_status = $2`,
			orderID, from, to,
		)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStatusConflict
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE order_items SET item_status = $2 WHERE order_id = $1`, orderID, to); err != nil {
			return fmt.Errorf("update item status: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

func (r *repository) GetByRemoteOrderID(ctx context.Context, remoteOrderID string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE razorpay_order_id = $1`, remoteOrderID)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListForSeller returns orders holding at least one of the seller's
// products, with only the seller's line items attached.
func (r *repository) ListForSeller(ctx context.Context, sellerID uint) ([]Order, error) {
	orders, err := r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE EXISTS (
			SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.seller_id = $1
		)
		ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		mine := orders[i].Items[:0]
		for _, it := range orders[i].Items {
			if it.SellerID == sellerID {
				mine = append(mine, it)
			}
		}
		orders[i].Items = mine
	}
	return orders, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("layer", "repository"),
			zap.Error(err),
		)
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, seller_id,
		       unit_price, quantity, item_status, payment_status
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		var orderID uuid.UUID
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.Name, &it.SellerID,
			&it.UnitPrice, &it.Quantity, &it.ItemStatus, &it.PaymentStatus); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) SellerOwnsOrder(ctx context.Context, orderID uuid.UUID, sellerID uint) (bool, error) {
	var owns bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM order_items WHERE order_id = $1 AND seller_id = $2)`,
		orderID, sellerID,
	).Scan(&owns)
	if err != nil {
		return false, fmt.Errorf("check seller order: %w", err)
	}
	return owns, nil
}

// SellerRevenue sums the seller's line items over paid, delivered orders.
func (r *repository) SellerRevenue(ctx context.Context, sellerID uint) (*Revenue, error) {
	rev := &Revenue{SellerID: sellerID}
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(oi.unit_price * oi.quantity), 0), COUNT(DISTINCT o.id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.seller_id = $1 AND o.payment_status = 'paid' AND o.order_status = 'Delivered'`,
		sellerID,
	).Scan(&rev.Total, &rev.Orders)
	if err != nil {
		return nil, fmt.Errorf("seller revenue: %w", err)
	}
	return rev, nil
}
