package domain_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomshare/roomshare-api/internal/domain"
)

const (
	redisPassword = "redis-pass-7f3a"
	signingKey    = "hs256-signing-key-0123456789abcdef"
)

func TestSecrets_NeverRendered(t *testing.T) {
	tests := []struct {
		name   string
		secret any
		raw    string
	}{
		{"string", domain.SecretString(redisPassword), redisPassword},
		{"bytes", domain.SecretBytes(signingKey), signingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var text, js bytes.Buffer
			slog.New(slog.NewTextHandler(&text, nil)).Info("boot", "value", tt.secret)
			slog.New(slog.NewJSONHandler(&js, nil)).Info("boot", "value", tt.secret)
			encoded, err := json.Marshal(tt.secret)
			require.NoError(t, err)

			outputs := map[string]string{
				"fmt %v":    fmt.Sprintf("%v", tt.secret),
				"fmt %s":    fmt.Sprintf("%s", tt.secret),
				"slog text": text.String(),
				"slog json": js.String(),
				"json":      string(encoded),
			}
			for where, out := range outputs {
				assert.Contains(t, out, "[REDACTED]", where)
				assert.NotContains(t, out, tt.raw, where)
			}
		})
	}
}

// Secrets travel inside config and key structs; logging the whole struct
// must not leak them either.
func TestSecrets_NestedInLoggedStruct(t *testing.T) {
	type keys struct {
		Issuer   string
		Password domain.SecretString
		Access   domain.SecretBytes
	}
	v := keys{
		Issuer:   "roomshare-api",
		Password: domain.SecretString(redisPassword),
		Access:   domain.SecretBytes(signingKey),
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("config loaded", "keys", v)

	for where, out := range map[string]string{
		"slog json": buf.String(),
		"fmt %+v":   fmt.Sprintf("%+v", v),
	} {
		assert.Contains(t, out, "roomshare-api", where)
		assert.NotContains(t, out, redisPassword, where)
		assert.NotContains(t, out, signingKey, where)
	}
}

func TestSecrets_Expose(t *testing.T) {
	assert.Equal(t, redisPassword, domain.SecretString(redisPassword).Expose())
	assert.Equal(t, []byte(signingKey), domain.SecretBytes(signingKey).Expose())

	assert.True(t, domain.SecretString("").IsEmpty())
	assert.True(t, domain.SecretBytes(nil).IsEmpty())
	assert.False(t, domain.SecretBytes(signingKey).IsEmpty())
}

func TestSecretBytesEqual(t *testing.T) {
	a := domain.SecretBytes("access-secret")
	assert.True(t, a.Equal(domain.SecretBytes("access-secret")))
	assert.False(t, a.Equal(domain.SecretBytes("refresh-secret")))
	assert.False(t, a.Equal(nil))
}
