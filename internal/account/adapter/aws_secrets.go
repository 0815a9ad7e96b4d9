package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
)

// smClient is the narrow consumer-defined interface for Secrets Manager operations.
type smClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// signingSecretsDoc is the JSON layout of the signing secret.
type signingSecretsDoc struct {
	AccessSecret  string `json:"access_secret"`
	RefreshSecret string `json:"refresh_secret"`
}

// SecretsManagerSource loads both token signing secrets from one Secrets
// Manager secret.
type SecretsManagerSource struct {
	sm       smClient
	secretID string
}

// NewSecretsManagerSource creates a source reading secretID.
func NewSecretsManagerSource(sm smClient, secretID string) *SecretsManagerSource {
	return &SecretsManagerSource{sm: sm, secretID: secretID}
}

// NewSecretsManagerClient builds the SDK client from a loaded AWS config.
func NewSecretsManagerClient(cfg aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg)
}

// Load fetches and validates the signing secrets. The service must not start
// without them.
func (s *SecretsManagerSource) Load(ctx context.Context) (auth.Secrets, error) {
	ctx, span := tracer.Start(ctx, "secretsmanager.load_signing_secrets")
	defer span.End()

	out, err := s.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		span.RecordError(err)
		return auth.Secrets{}, fmt.Errorf("get secret %q: %w", s.secretID, err)
	}
	if out.SecretString == nil {
		return auth.Secrets{}, fmt.Errorf("secret %q has no string value: %w", s.secretID, domain.ErrConfigRequired)
	}

	var doc signingSecretsDoc
	if err := json.Unmarshal([]byte(*out.SecretString), &doc); err != nil {
		return auth.Secrets{}, fmt.Errorf("secret %q is not valid JSON: %w", s.secretID, domain.ErrConfigInvalid)
	}

	secrets := auth.Secrets{
		Access:  domain.SecretBytes(doc.AccessSecret),
		Refresh: domain.SecretBytes(doc.RefreshSecret),
	}
	if err := secrets.Validate(); err != nil {
		return auth.Secrets{}, fmt.Errorf("secret %q: %w", s.secretID, err)
	}
	return secrets, nil
}
