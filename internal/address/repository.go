package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"

	"github.com/google/uuid"
)

type Repository interface {
	ListByUser(ctx context.Context, userID uint) ([]Address, error)
	Get(ctx context.Context, userID uint, id uuid.UUID) (*Address, error)
	Create(ctx context.Context, a *Address) (*Address, error)
	Update(ctx context.Context, a *Address) (*Address, error)
	Delete(ctx context.Context, userID uint, id uuid.UUID) error
	SetDefault(ctx context.Context, userID uint, id uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const addressColumns = `id, user_id, label, street, city, state, postal_code, is_default, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAddress(row scanner) (*Address, error) {
	var a Address
	if err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.Street, &a.City, &a.State, &a.PostalCode, &a.IsDefault, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	list := []Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID uint, id uuid.UUID) (*Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

// Create makes the first address of a user the default.
func (r *repository) Create(ctx context.Context, a *Address) (*Address, error) {
	var created *Address
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if a.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE addresses SET is_default = FALSE WHERE user_id = $1`, a.UserID); err != nil {
				return fmt.Errorf("reset default: %w", err)
			}
		}

		var err error
		created, err = scanAddress(tx.QueryRowContext(ctx, `
			INSERT INTO addresses (id, user_id, label, street, city, state, postal_code, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7,
			        $8 OR NOT EXISTS (SELECT 1 FROM addresses WHERE user_id = $2))
			RETURNING `+addressColumns,
			uuid.New(), a.UserID, a.Label, a.Street, a.City, a.State, a.PostalCode, a.IsDefault,
		))
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		return nil
	})
	return created, err
}

func (r *repository) Update(ctx context.Context, a *Address) (*Address, error) {
	updated, err := scanAddress(r.db.QueryRowContext(ctx, `
		UPDATE addresses
		SET label = $1, street = $2, city = $3, state = $4, postal_code = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING `+addressColumns,
		a.Label, a.Street, a.City, a.State, a.PostalCode, a.ID, a.UserID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func (r *repository) SetDefault(ctx context.Context, userID uint, id uuid.UUID) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`, id, userID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check address: %w", err)
		}
		if !exists {
			return ErrAddressNotFound
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE addresses SET is_default = (id = $1), updated_at = NOW()
			WHERE user_id = $2`, id, userID); err != nil {
			return fmt.Errorf("set default address: %w", err)
		}
		return nil
	})
}
