package wishlist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Add(ctx context.Context, userID uint, productID string) error
	Remove(ctx context.Context, userID uint, productID string) (bool, error)
	List(ctx context.Context, userID uint) ([]Item, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Add is idempotent.
func (r *repository) Add(ctx context.Context, userID uint, productID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, userID uint, productID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("remove wishlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) List(ctx context.Context, userID uint) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.product_id, p.name, p.price, p.discount_price, p.images, w.created_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id AND p.deleted_at IS NULL
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		var discount decimal.NullDecimal
		var images []string
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &discount, pq.Array(&images), &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		if discount.Valid {
			it.DiscountPrice = &discount.Decimal
		}
		if len(images) > 0 {
			it.Image = images[0]
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
