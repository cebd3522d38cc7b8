package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinStaffPasswordLength is the shortest staff password hash-password accepts.
const MinStaffPasswordLength = 8

var (
	// ErrPasswordTooShort is returned by HashPassword for weak passwords.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password mismatch")
)

// HashPassword hashes the shared staff password for STAFF_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < MinStaffPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
