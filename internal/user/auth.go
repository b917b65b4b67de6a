package user

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

const minPasswordLength = 6

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// OTPs are stored hashed like passwords; MinCost keeps resend cheap.
func HashOTP(otp string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.MinCost)
	return string(bytes), err
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
