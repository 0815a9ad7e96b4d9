// Package awsconf loads the shared AWS SDK configuration used by the
// DynamoDB credential store and the Secrets Manager secret source.
package awsconf

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Config holds AWS connection parameters.
type Config struct {
	// Region is the AWS region (e.g. "us-east-1").
	Region string

	// Endpoint overrides the default AWS endpoint. Set to a LocalStack URL
	// for local development; static test credentials are used then.
	Endpoint string

	// Timeout is the HTTP client timeout for SDK requests.
	Timeout time.Duration
}

// Load resolves an aws.Config from the default credential chain, or from
// static LocalStack credentials when an endpoint override is set.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("test", "test", ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return awsCfg, nil
}
