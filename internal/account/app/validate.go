package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roomshare/roomshare-api/internal/domain"
)

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return "", fmt.Errorf("name longer than %d characters: %w", domain.MaxNameLength, domain.ErrInvalidInput)
	}
	return name, nil
}

func normalizePhone(raw string) (string, error) {
	phone, err := domain.ParsePhoneNumber(raw)
	if err != nil {
		return "", err
	}
	return phone.String(), nil
}
