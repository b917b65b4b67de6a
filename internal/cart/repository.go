package cart

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/product"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Get(ctx context.Context, userID uint) (*Cart, error)
	Add(ctx context.Context, userID uint, productID string, quantity int) error
	UpdateQuantity(ctx context.Context, userID uint, productID string, quantity int) error
	Remove(ctx context.Context, userID uint, productID string) error
	Clear(ctx context.Context, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Every cart mutation bumps users.cart_version so order placement can detect
// a cart that changed under it.
func bumpVersion(ctx context.Context, tx *sql.Tx, userID uint) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET cart_version = cart_version + 1 WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}
	return nil
}

// Get skips entries whose product is missing or soft-deleted.
func (r *repository) Get(ctx context.Context, userID uint) (*Cart, error) {
	c := &Cart{Items: []Item{}, Total: decimal.Zero}

	if err := r.db.QueryRowContext(ctx,
		`SELECT cart_version FROM users WHERE id = $1`, userID,
	).Scan(&c.Version); err != nil {
		return nil, fmt.Errorf("get cart version: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.product_id, c.quantity, p.name, p.price, p.discount_price, p.stock, p.images
		FROM cart_items c
		JOIN products p ON p.id = c.product_id AND p.deleted_at IS NULL
		WHERE c.user_id = $1
		ORDER BY c.id`, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get cart rows",
			zap.String("layer", "repository"),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get cart rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		var discount decimal.NullDecimal
		var images []string
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Name, &it.Price, &discount, &it.Stock, pq.Array(&images)); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		if discount.Valid {
			it.DiscountPrice = &discount.Decimal
		}
		if len(images) > 0 {
			it.Image = images[0]
		}
		it.UnitPrice = product.EffectivePrice(it.Price, it.DiscountPrice)
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		c.Total = c.Total.Add(it.Subtotal)
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// Add increments the quantity when the product is already in the cart.
func (r *repository) Add(ctx context.Context, userID uint, productID string, quantity int) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
			userID, productID, quantity,
		); err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return bumpVersion(ctx, tx, userID)
	})
}

func (r *repository) UpdateQuantity(ctx context.Context, userID uint, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = $1, updated_at = NOW()
			WHERE user_id = $2 AND product_id = $3`,
			quantity, userID, productID,
		)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		if err := expectRows(res); err != nil {
			return err
		}
		return bumpVersion(ctx, tx, userID)
	})
}

func (r *repository) Remove(ctx context.Context, userID uint, productID string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
		if err != nil {
			return fmt.Errorf("remove cart item: %w", err)
		}
		if err := expectRows(res); err != nil {
			return err
		}
		return bumpVersion(ctx, tx, userID)
	})
}

func (r *repository) Clear(ctx context.Context, userID uint) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return bumpVersion(ctx, tx, userID)
	})
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}
