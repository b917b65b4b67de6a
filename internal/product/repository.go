package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]Product, int, error)
	Update(ctx context.Context, p *Product) (*Product, error)
	SoftDelete(ctx context.Context, id string) error
	AppendImages(ctx context.Context, id string, urls []string) (*Product, error)

	AddReview(ctx context.Context, r *Review) (*Review, error)
	ListReviews(ctx context.Context, productID string) ([]Review, error)
	GetReview(ctx context.Context, productID string, reviewID int64) (*Review, error)
	DeleteReview(ctx context.Context, productID string, reviewID int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, description, brand, category, price, discount_price, stock, status, seller_id, images, average_rating, review_count, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*Product, error) {
	var p Product
	var discount decimal.NullDecimal
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Brand, &p.Category,
		&p.Price, &discount, &p.Stock, &p.Status, &p.SellerID,
		pq.Array(&p.Images), &p.AverageRating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		p.DiscountPrice = &discount.Decimal
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (r *repository) Create(ctx context.Context, p *Product) (*Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, brand, category, price, discount_price, stock, status, seller_id, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Brand, p.Category,
		p.Price, nullDecimal(p.DiscountPrice), p.Stock, p.Status, p.SellerID, pq.Array(p.Images),
	)

	created, err := scanProduct(row)
	if err != nil {
		logger.FromCtx(ctx).Error("db: failed to insert product",
			zap.String("layer", "repository"),
			zap.String("method", "Create"),
			zap.Error(err),
		)
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProductNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func buildListFilter(opts ListOptions) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	args := []any{}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !opts.AllStatuses {
		add("status = $%d", string(StatusActive))
	}
	if opts.SellerID != 0 {
		add("seller_id = $%d", opts.SellerID)
	}
	if opts.Category != "" {
		add("category = $%d", opts.Category)
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		add("(name ILIKE $%[1]d OR brand ILIKE $%[1]d)", "%"+s+"%")
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]Product, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	where, args := buildListFilter(opts)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		log.Error("failed to count products", zap.Error(err))
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	pageArgs := append(append([]any{}, args...), opts.Limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		log.Error("failed to list products", zap.Error(err))
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) Update(ctx context.Context, p *Product) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, brand = $3, category = $4, price = $5,
		    discount_price = $6, stock = $7, status = $8, updated_at = NOW()
		WHERE id = $9 AND deleted_at IS NULL
		RETURNING `+productColumns,
		p.Name, p.Description, p.Brand, p.Category, p.Price,
		nullDecimal(p.DiscountPrice), p.Stock, p.Status, p.ID,
	)

	updated, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

// SoftDelete hides a product; rows stay for historical orders.
func (r *repository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) AppendImages(ctx context.Context, id string, urls []string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products SET images = array_cat(images, $1), updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING `+productColumns,
		pq.Array(urls), id,
	)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("append images: %w", err)
	}
	return p, nil
}

const reviewSelect = `
	SELECT r.id, r.product_id, r.user_id, u.name, u.email, r.rating, r.comment, r.created_at
	FROM product_reviews r
	JOIN users u ON u.id = r.user_id`

func scanReview(row scanner) (*Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.User.ID, &rv.User.Name, &rv.User.Email,
		&rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// refreshRating recomputes the cached rating from the review rows.
func refreshRating(ctx context.Context, tx *sql.Tx, productID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET average_rating = COALESCE((SELECT ROUND(AVG(rating), 2) FROM product_reviews WHERE product_id = $1), 0),
		    review_count = (SELECT COUNT(*) FROM product_reviews WHERE product_id = $1),
		    updated_at = NOW()
		WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("refresh rating: %w", err)
	}
	return nil
}

// AddReview inserts the review and the new average in one transaction.
// A second review by the same user loses on the unique key.
func (r *repository) AddReview(ctx context.Context, rv *Review) (*Review, error) {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO product_reviews (product_id, user_id, rating, comment)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id, user_id) DO NOTHING
			RETURNING id, created_at`,
			rv.ProductID, rv.User.ID, rv.Rating, rv.Comment,
		).Scan(&rv.ID, &rv.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadyReviewed
		}
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		return refreshRating(ctx, tx, rv.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (r *repository) ListReviews(ctx context.Context, productID string) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx,
		reviewSelect+` WHERE r.product_id = $1 ORDER BY r.created_at DESC, r.id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

func (r *repository) GetReview(ctx context.Context, productID string, reviewID int64) (*Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx,
		reviewSelect+` WHERE r.product_id = $1 AND r.id = $2`, productID, reviewID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r *repository) DeleteReview(ctx context.Context, productID string, reviewID int64) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM product_reviews WHERE product_id = $1 AND id = $2`, productID, reviewID)
		if err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrReviewNotFound
		}
		return refreshRating(ctx, tx, productID)
	})
}
