package auth

import (
	"fmt"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// MinSecretLength is the shortest HMAC secret accepted for either token type.
const MinSecretLength = 32

// Secrets holds the two independent signing secrets. A token signed with one
// never verifies with the other.
type Secrets struct {
	Access  domain.SecretBytes
	Refresh domain.SecretBytes
}

// Validate rejects missing, short, or shared secrets.
func (s Secrets) Validate() error {
	if s.Access.IsEmpty() {
		return fmt.Errorf("access token secret: %w", domain.ErrConfigRequired)
	}
	if s.Refresh.IsEmpty() {
		return fmt.Errorf("refresh token secret: %w", domain.ErrConfigRequired)
	}
	if len(s.Access) < MinSecretLength || len(s.Refresh) < MinSecretLength {
		return fmt.Errorf("token secrets must be at least %d bytes: %w", MinSecretLength, domain.ErrConfigInvalid)
	}
	if s.Access.Equal(s.Refresh) {
		return fmt.Errorf("access and refresh secrets must differ: %w", domain.ErrConfigInvalid)
	}
	return nil
}

func (s Secrets) keyFor(typ string) []byte {
	if typ == TypeRefresh {
		return s.Refresh.Expose()
	}
	return s.Access.Expose()
}
