package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	SetOTP(ctx context.Context, id uint, otpHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	List(ctx context.Context, role auth.Role) ([]User, error)
	SetBlocked(ctx context.Context, id uint, blocked bool) (*User, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, name, email, phone, password, role, verified, blocked, otp_hash, otp_expires_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	var otpHash sql.NullString
	var otpExpires sql.NullTime
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &u.Role,
		&u.Verified, &u.Blocked, &otpHash, &otpExpires, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if otpHash.Valid {
		u.OTPHash = &otpHash.String
	}
	if otpExpires.Valid {
		u.OTPExpiresAt = &otpExpires.Time
	}
	return &u, nil
}

func (r *repository) Create(ctx context.Context, u *User) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, phone, password, role, otp_hash, otp_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Name, u.Email, u.Phone, u.Password, u.Role, u.OTPHash, u.OTPExpiresAt,
	)

	created, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_phone_key" {
				return nil, ErrPhoneExists
			}
			return nil, ErrEmailExists
		}
		log.Error("db: failed to insert user", zap.String("email", u.Email), zap.Error(err))
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return created, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *repository) FindByID(ctx context.Context, id uint) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *repository) SetOTP(ctx context.Context, id uint, otpHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp_hash = $1, otp_expires_at = $2, updated_at = NOW() WHERE id = $3`,
		otpHash, expiresAt, id,
	)
	return expectOneRow(res, err, "set otp")
}

func (r *repository) MarkVerified(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET verified = TRUE, otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW() WHERE id = $1`,
		id,
	)
	return expectOneRow(res, err, "mark verified")
}

func (r *repository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $1, otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW() WHERE id = $2`,
		passwordHash, id,
	)
	return expectOneRow(res, err, "update password")
}

// List returns users newest first; an empty role lists everyone.
func (r *repository) List(ctx context.Context, role auth.Role) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC`,
		string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *repository) SetBlocked(ctx context.Context, id uint, blocked bool) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET blocked = $1, updated_at = NOW() WHERE id = $2 RETURNING `+userColumns,
		blocked, id,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set blocked: %w", err)
	}
	return u, nil
}

func expectOneRow(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
