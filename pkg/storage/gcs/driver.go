package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	pkgstorage "github.com/bit2swaz/rotate-backups/pkg/storage"
)

// Scheme is the URL scheme that selects the GCS driver.
const Scheme = "gs"

var _ pkgstorage.Driver = (*GCSDriver)(nil)

// API is the subset of Cloud Storage used by GCSDriver.
type API interface {
	Objects(ctx context.Context, bucket string, query *storage.Query) ([]*storage.ObjectAttrs, error)
	DeleteObject(ctx context.Context, bucket, name string) error
}

// NewAPI adapts a Cloud Storage client to API.
func NewAPI(client *storage.Client) API {
	return clientAPI{client: client}
}

type clientAPI struct {
	client *storage.Client
}

func (c clientAPI) Objects(ctx context.Context, bucket string, query *storage.Query) ([]*storage.ObjectAttrs, error) {
	it := c.client.Bucket(bucket).Objects(ctx, query)
	var out []*storage.ObjectAttrs
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}
}

func (c clientAPI) DeleteObject(ctx context.Context, bucket, name string) error {
	return c.client.Bucket(bucket).Object(name).Delete(ctx)
}

// GCSDriver implements storage.Driver for a bucket prefix. Synthetic
// directories one level below the prefix are reported with a trailing slash.
type GCSDriver struct {
	api    API
	bucket string
	prefix string
}

// IsLocation reports whether location is a gs:// URL.
func IsLocation(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), Scheme+"://")
}

// ParseLocation splits a gs://bucket/prefix URL. The prefix is empty or ends
// with a slash.
func ParseLocation(location string) (bucket, prefix string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse location %s: %w", location, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", "", fmt.Errorf("location %s is not a gs:// URL", location)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("location %s has no bucket", location)
	}
	prefix = strings.TrimLeft(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return u.Host, prefix, nil
}

// New creates a GCSDriver for the gs:// location.
func New(api API, location string) (*GCSDriver, error) {
	if api == nil {
		return nil, errors.New("gcs client is nil")
	}
	bucket, prefix, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	return &GCSDriver{api: api, bucket: bucket, prefix: prefix}, nil
}

func (d *GCSDriver) Location() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, d.bucket, d.prefix)
}

func (d *GCSDriver) List(ctx context.Context) ([]string, error) {
	attrs, err := d.api.Objects(ctx, d.bucket, &storage.Query{Prefix: d.prefix, Delimiter: "/"})
	if err != nil {
		return nil, fmt.Errorf("list objects in %s: %w", d.Location(), err)
	}

	var names []string
	for _, a := range attrs {
		full := a.Name
		if a.Prefix != "" {
			full = a.Prefix
		}
		if name := strings.TrimPrefix(full, d.prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Delete removes one object, or every object below a synthetic directory
// when name ends with a slash.
func (d *GCSDriver) Delete(ctx context.Context, name string) error {
	if err := pkgstorage.ValidateObjectName(name); err != nil {
		return err
	}
	if !strings.HasSuffix(name, "/") {
		return d.deleteObject(ctx, d.prefix+name)
	}

	attrs, err := d.api.Objects(ctx, d.bucket, &storage.Query{Prefix: d.prefix + name})
	if err != nil {
		return fmt.Errorf("list objects in %s: %w", d.prefix+name, err)
	}
	for _, a := range attrs {
		if a.Name == "" {
			continue
		}
		if err := d.deleteObject(ctx, a.Name); err != nil {
			return err
		}
	}
	return nil
}

func (d *GCSDriver) deleteObject(ctx context.Context, object string) error {
	err := d.api.DeleteObject(ctx, d.bucket, object)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", object, err)
	}
	return nil
}
