// Package domain contains the shared vocabulary of the roomshare API:
// value objects, sentinel errors, limits, and the Clock abstraction.
// No infrastructure imports belong here.
package domain

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// UserID is a value object representing a unique user identifier.
// Always valid in memory - use NewUserID to construct.
type UserID struct {
	value string
}

// NewUserID creates a UserID from a raw string, validating it is a valid UUID.
func NewUserID(raw string) (UserID, error) {
	if raw == "" {
		return UserID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return UserID{}, fmt.Errorf("invalid user ID %q: %w", raw, ErrInvalidID)
	}
	return UserID{value: raw}, nil
}

// MustUserID creates a UserID, panicking on invalid input. Use only in tests.
func MustUserID(raw string) UserID {
	id, err := NewUserID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateUserID creates a new random UserID.
func GenerateUserID() UserID {
	return UserID{value: uuid.NewString()}
}

func (id UserID) String() string { return id.value }
func (id UserID) IsZero() bool   { return id.value == "" }

// GenerateTokenID returns a fresh token identifier (jti).
func GenerateTokenID() string {
	return uuid.NewString()
}

// NormalizeEmail trims and lower-cases an address and checks it parses as a
// bare addr-spec. Display-name forms ("Bob <bob@x.io>") are rejected.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("email is required: %w", ErrInvalidEmail)
	}
	if len(email) > MaxEmailLength {
		return "", fmt.Errorf("email exceeds %d characters: %w", MaxEmailLength, ErrInvalidEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("email %q is not a valid address: %w", raw, ErrInvalidEmail)
	}
	return email, nil
}
