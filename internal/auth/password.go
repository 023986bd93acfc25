package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const minPasswordLength = 12

// HashPassword hashes a plaintext password with the given cost; a cost
// outside bcrypt's range falls back to the default.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.NewValidationError("password too short", map[string]any{"min_length": minPasswordLength})
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword checks plain against hashed and reports a mismatch as
// unauthorized.
func VerifyPassword(hashed, plain string) error {
	if hashed == "" {
		return apperrors.NewUnauthorized("operator login is disabled")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
