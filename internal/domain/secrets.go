package domain

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
)

const redacted = "[REDACTED]"

var redactedJSON = []byte(`"` + redacted + `"`)

// SecretString wraps sensitive string values such as the Redis password.
// It implements slog.LogValuer and fmt.Stringer so it never prints.
type SecretString string

func (s SecretString) String() string { return redacted }

// LogValue implements slog.LogValuer.
func (s SecretString) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalJSON keeps the value out of JSON output, including slog's JSON
// handler when the secret sits inside a logged struct.
func (s SecretString) MarshalJSON() ([]byte, error) { return redactedJSON, nil }

// Expose returns the actual secret value.
func (s SecretString) Expose() string { return string(s) }

// IsEmpty returns true if the secret is empty.
func (s SecretString) IsEmpty() bool { return len(s) == 0 }

// SecretBytes wraps signing keys. Same protections as SecretString.
type SecretBytes []byte

func (s SecretBytes) String() string { return redacted }

// LogValue implements slog.LogValuer.
func (s SecretBytes) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalJSON implements json.Marshaler.
func (s SecretBytes) MarshalJSON() ([]byte, error) { return redactedJSON, nil }

// Expose returns the actual secret bytes.
func (s SecretBytes) Expose() []byte { return []byte(s) }

// IsEmpty returns true if the secret is empty.
func (s SecretBytes) IsEmpty() bool { return len(s) == 0 }

// Equal compares two secrets in constant time.
func (s SecretBytes) Equal(other SecretBytes) bool {
	return subtle.ConstantTimeCompare(s, other) == 1
}

var (
	_ slog.LogValuer = SecretString("")
	_ slog.LogValuer = SecretBytes{}
	_ json.Marshaler = SecretString("")
	_ json.Marshaler = SecretBytes{}
)
