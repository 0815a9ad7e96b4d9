package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// HashPassword returns the bcrypt hash of password at the given cost.
// A cost outside bcrypt's range falls back to domain.PasswordHashCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < domain.MinPasswordLength {
		return "", fmt.Errorf("password shorter than %d characters: %w", domain.MinPasswordLength, domain.ErrWeakPassword)
	}
	if len(password) > domain.MaxPasswordLength {
		return "", fmt.Errorf("password longer than %d bytes: %w", domain.MaxPasswordLength, domain.ErrInvalidInput)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = domain.PasswordHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks password against a stored bcrypt hash. A mismatch
// returns domain.ErrInvalidCredentials.
func ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return domain.ErrInvalidCredentials
	default:
		return fmt.Errorf("compare password: %w", err)
	}
}
