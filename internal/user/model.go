package user

import (
	"time"

	"storefront-be/internal/auth"
)

const OTPTTL = 10 * time.Minute

type User struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Password     string     `json:"-"`
	Role         auth.Role  `json:"role"`
	Verified     bool       `json:"verified"`
	Blocked      bool       `json:"blocked"`
	OTPHash      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type RegisterInput struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

// otpValid reports whether otp matches the pending code and has not expired.
func (u *User) otpValid(otp string, now time.Time) bool {
	if u.OTPHash == nil || u.OTPExpiresAt == nil {
		return false
	}
	if now.After(*u.OTPExpiresAt) {
		return false
	}
	return CheckPasswordHash(otp, *u.OTPHash)
}
