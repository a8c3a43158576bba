package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	gcstorage "cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	internalstorage "github.com/bit2swaz/rotate-backups/internal/storage"
	"github.com/bit2swaz/rotate-backups/pkg/storage"
	"github.com/bit2swaz/rotate-backups/pkg/storage/azure"
	"github.com/bit2swaz/rotate-backups/pkg/storage/gcs"
	"github.com/bit2swaz/rotate-backups/pkg/storage/local"
	s3driver "github.com/bit2swaz/rotate-backups/pkg/storage/s3"
)

// Opener resolves a location string to a storage driver.
type Opener func(ctx context.Context, location string) (storage.Driver, error)

// BackendOptions holds the client settings for every remote backend.
type BackendOptions struct {
	S3    internalstorage.S3Options
	GCS   internalstorage.GCSOptions
	Azure internalstorage.AzureOptions
}

// lazyClient creates a client on first use. The first error is kept for the
// rest of the run.
type lazyClient[T any] struct {
	once    sync.Once
	created atomic.Bool
	client  T
	err     error
}

func (l *lazyClient[T]) get(create func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.client, l.err = create()
		l.created.Store(true)
	})
	return l.client, l.err
}

// peek returns the client if one was created successfully. It never creates
// one.
func (l *lazyClient[T]) peek() (T, bool) {
	var zero T
	if !l.created.Load() || l.err != nil {
		return zero, false
	}
	return l.client, true
}

// Backends resolves locations to drivers, creating one client per remote
// backend on first use. Close releases the clients that need it.
type Backends struct {
	opts BackendOptions

	s3Client    lazyClient[*s3.Client]
	gcsClient   lazyClient[*gcstorage.Client]
	azureClient lazyClient[*azblob.Client]
}

// NewBackends returns Backends for opts. No client is created until a
// location of its scheme is opened.
func NewBackends(opts BackendOptions) *Backends {
	return &Backends{opts: opts}
}

// NewOpener returns the Open method of a fresh Backends. Use NewBackends
// when the clients must be closed.
func NewOpener(opts BackendOptions) Opener {
	return NewBackends(opts).Open
}

// Open serves s3://, gs:// and wasbs:// locations through the shared clients
// and everything else as a local directory.
func (b *Backends) Open(ctx context.Context, location string) (storage.Driver, error) {
	switch {
	case s3driver.IsLocation(location):
		client, err := b.s3Client.get(func() (*s3.Client, error) {
			return internalstorage.NewS3Client(ctx, b.opts.S3)
		})
		if err != nil {
			return nil, err
		}
		return s3driver.New(client, location)

	case gcs.IsLocation(location):
		client, err := b.gcsClient.get(func() (*gcstorage.Client, error) {
			return internalstorage.NewGCSClient(context.WithoutCancel(ctx), b.opts.GCS)
		})
		if err != nil {
			return nil, err
		}
		return gcs.New(gcs.NewAPI(client), location)

	case azure.IsLocation(location):
		client, err := b.azureClient.get(func() (*azblob.Client, error) {
			return internalstorage.NewAzureClient(b.opts.Azure)
		})
		if err != nil {
			return nil, err
		}
		return azure.New(azure.NewAPI(client), location)

	default:
		return local.New(location)
	}
}

// Close closes the Cloud Storage client if one was created. The S3 and Azure
// clients hold no resources beyond their HTTP transport.
func (b *Backends) Close() error {
	client, ok := b.gcsClient.peek()
	if !ok || client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
