package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/bit2swaz/rotate-backups/pkg/storage"
)

// Scheme is the URL scheme that selects the S3 driver.
const Scheme = "s3"

// maxDeleteBatch is the DeleteObjects limit per request.
const maxDeleteBatch = 1000

var _ storage.Driver = (*S3Driver)(nil)

// API is the subset of the S3 client used by S3Driver.
type API interface {
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Driver implements storage.Driver for a bucket prefix. Objects directly
// under the prefix and common prefixes one level below it are backups; the
// latter are reported with a trailing slash.
type S3Driver struct {
	client API
	bucket string
	prefix string
}

// IsLocation reports whether location is an s3:// URL.
func IsLocation(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), Scheme+"://")
}

// ParseLocation splits an s3://bucket/prefix URL into bucket and prefix. The
// returned prefix is empty or ends with a slash.
func ParseLocation(location string) (bucket, prefix string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse location %s: %w", location, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", "", fmt.Errorf("location %s is not an s3:// URL", location)
	}
	bucket = u.Host
	if bucket == "" {
		return "", "", fmt.Errorf("location %s has no bucket", location)
	}
	prefix = strings.TrimLeft(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix, nil
}

// New creates an S3Driver for the s3:// location using client.
func New(client API, location string) (*S3Driver, error) {
	if client == nil {
		return nil, errors.New("s3 client is nil")
	}
	bucket, prefix, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	return &S3Driver{client: client, bucket: bucket, prefix: prefix}, nil
}

// Location returns the normalised s3:// URL.
func (d *S3Driver) Location() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, d.bucket, d.prefix)
}

// List returns object names and common prefixes directly under the prefix.
func (d *S3Driver) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(d.prefix),
		Delimiter: aws.String("/"),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", d.Location(), err)
		}
		for _, cp := range page.CommonPrefixes {
			if name := strings.TrimPrefix(aws.ToString(cp.Prefix), d.prefix); name != "" {
				names = append(names, name)
			}
		}
		for _, obj := range page.Contents {
			if name := strings.TrimPrefix(aws.ToString(obj.Key), d.prefix); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Delete removes a single object, or every object below a common prefix when
// name ends with a slash.
func (d *S3Driver) Delete(ctx context.Context, name string) error {
	if err := storage.ValidateObjectName(name); err != nil {
		return err
	}
	if strings.HasSuffix(name, "/") {
		return d.deletePrefix(ctx, d.prefix+name)
	}

	key := d.prefix + name
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) deletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(prefix),
	})

	var batch []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects in %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == maxDeleteBatch {
				if err := d.deleteBatch(ctx, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	if len(batch) > 0 {
		return d.deleteBatch(ctx, batch)
	}
	return nil
}

func (d *S3Driver) deleteBatch(ctx context.Context, objects []types.ObjectIdentifier) error {
	out, err := d.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(d.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete %d objects: %w", len(objects), err)
	}
	for _, e := range out.Errors {
		if aws.ToString(e.Code) == "NoSuchKey" {
			continue
		}
		return fmt.Errorf("delete object %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
