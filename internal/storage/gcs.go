package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures the client used for gs:// locations. With no
// credentials set, Application Default Credentials are used.
type GCSOptions struct {
	Endpoint        string
	CredentialsFile string
	CredentialsJSON string
}

func (o GCSOptions) validate() error {
	if strings.TrimSpace(o.CredentialsFile) != "" && strings.TrimSpace(o.CredentialsJSON) != "" {
		return errors.New("gcs credentials file and credentials json are mutually exclusive")
	}
	return nil
}

func (o GCSOptions) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	endpoint := strings.TrimSpace(o.Endpoint)
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	switch {
	case strings.TrimSpace(o.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(o.CredentialsJSON)))
	case strings.TrimSpace(o.CredentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	case endpoint != "":
		// emulators such as fake-gcs-server take no credentials
		opts = append(opts, option.WithoutAuthentication())
	}
	return opts
}

// NewGCSClient creates a Cloud Storage client.
func NewGCSClient(ctx context.Context, opts GCSOptions) (*storage.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}
