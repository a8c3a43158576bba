package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// S3Options configures the S3 client used for s3:// locations. Empty fields
// fall back to the AWS SDK default chain (environment, shared config, IMDS).
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// R2AccountID points the client at Cloudflare R2 when Endpoint is empty.
	R2AccountID string
	PathStyle   bool
}

// ResolvedEndpoint returns the custom endpoint the client will use, or "" for AWS.
func (o S3Options) ResolvedEndpoint() string {
	if ep := strings.TrimSpace(o.Endpoint); ep != "" {
		return ep
	}
	if id := strings.TrimSpace(o.R2AccountID); id != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", id)
	}
	return ""
}

func (o S3Options) region() string {
	if r := strings.TrimSpace(o.Region); r != "" {
		return r
	}
	if strings.TrimSpace(o.Endpoint) == "" && strings.TrimSpace(o.R2AccountID) != "" {
		return "auto"
	}
	return ""
}

func (o S3Options) validate() error {
	hasID := strings.TrimSpace(o.AccessKeyID) != ""
	hasSecret := strings.TrimSpace(o.SecretAccessKey) != ""
	if hasID != hasSecret {
		return errors.New("access key id and secret access key must be set together")
	}
	return nil
}

// NewS3Client creates an S3 client. Static credentials are used when both
// keys are supplied; a custom endpoint (MinIO, R2) is honoured when set.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if region := opts.region(); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if opts.AccessKeyID != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	endpoint := opts.ResolvedEndpoint()
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return client, nil
}
