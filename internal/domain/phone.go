package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// e164Pattern matches E.164 phone numbers: + followed by 7-15 digits.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// phoneSeparators are stripped before validation so "+251 91-123 4567" is
// accepted as "+251911234567".
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// PhoneNumber is a value object representing a contact number in E.164 format.
// The zero value means "no phone on file"; phone is optional on accounts.
type PhoneNumber struct {
	value string
}

// ParsePhoneNumber normalizes and validates a contact number. An empty input
// yields the zero PhoneNumber and no error.
func ParsePhoneNumber(raw string) (PhoneNumber, error) {
	cleaned := phoneSeparators.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return PhoneNumber{}, nil
	}
	if !e164Pattern.MatchString(cleaned) {
		return PhoneNumber{}, fmt.Errorf("phone number %q is not valid E.164: %w", raw, ErrInvalidPhoneNumber)
	}
	return PhoneNumber{value: cleaned}, nil
}

func (p PhoneNumber) String() string { return p.value }
func (p PhoneNumber) IsZero() bool   { return p.value == "" }
