package azure

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	pkgstorage "github.com/bit2swaz/rotate-backups/pkg/storage"
)

// Scheme is the URL scheme that selects the Azure Blob driver. Locations
// have the form wasbs://container/prefix; the account comes from the client.
const Scheme = "wasbs"

const delimiter = "/"

var _ pkgstorage.Driver = (*AzureDriver)(nil)

// API is the subset of Azure Blob Storage used by AzureDriver.
type API interface {
	// ListHierarchy returns blob names and virtual directory prefixes
	// directly below prefix.
	ListHierarchy(ctx context.Context, containerName, prefix string) (blobs, prefixes []string, err error)
	// ListFlat returns every blob name below prefix.
	ListFlat(ctx context.Context, containerName, prefix string) ([]string, error)
	DeleteBlob(ctx context.Context, containerName, name string) error
}

// NewAPI adapts an azblob client to API.
func NewAPI(client *azblob.Client) API {
	return clientAPI{client: client}
}

type clientAPI struct {
	client *azblob.Client
}

func (c clientAPI) ListHierarchy(ctx context.Context, containerName, prefix string) ([]string, []string, error) {
	cc := c.client.ServiceClient().NewContainerClient(containerName)
	pager := cc.NewListBlobsHierarchyPager(delimiter, &container.ListBlobsHierarchyOptions{Prefix: &prefix})

	var blobs, prefixes []string
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		if resp.Segment == nil {
			continue
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name != nil {
				blobs = append(blobs, *item.Name)
			}
		}
		for _, p := range resp.Segment.BlobPrefixes {
			if p.Name != nil {
				prefixes = append(prefixes, *p.Name)
			}
		}
	}
	return blobs, prefixes, nil
}

func (c clientAPI) ListFlat(ctx context.Context, containerName, prefix string) ([]string, error) {
	pager := c.client.NewListBlobsFlatPager(containerName, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var names []string
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if resp.Segment == nil {
			continue
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

func (c clientAPI) DeleteBlob(ctx context.Context, containerName, name string) error {
	_, err := c.client.DeleteBlob(ctx, containerName, name, nil)
	return err
}

// AzureDriver implements storage.Driver for a container prefix. Virtual
// directories one level below the prefix are reported with a trailing slash.
type AzureDriver struct {
	api       API
	container string
	prefix    string
}

// IsLocation reports whether location is a wasbs:// URL.
func IsLocation(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), Scheme+"://")
}

// ParseLocation splits a wasbs://container/prefix URL. The prefix is empty or
// ends with a slash.
func ParseLocation(location string) (containerName, prefix string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse location %s: %w", location, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", "", fmt.Errorf("location %s is not a wasbs:// URL", location)
	}
	containerName = u.Host
	if u.User != nil {
		// wasbs://container@account.blob.core.windows.net/prefix
		containerName = u.User.Username()
	}
	if containerName == "" {
		return "", "", fmt.Errorf("location %s has no container", location)
	}
	prefix = strings.TrimLeft(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return containerName, prefix, nil
}

// New creates an AzureDriver for the wasbs:// location.
func New(api API, location string) (*AzureDriver, error) {
	if api == nil {
		return nil, errors.New("azure client is nil")
	}
	containerName, prefix, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	return &AzureDriver{api: api, container: containerName, prefix: prefix}, nil
}

func (d *AzureDriver) Location() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, d.container, d.prefix)
}

func (d *AzureDriver) List(ctx context.Context) ([]string, error) {
	blobs, prefixes, err := d.api.ListHierarchy(ctx, d.container, d.prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs in %s: %w", d.Location(), err)
	}

	names := make([]string, 0, len(blobs)+len(prefixes))
	for _, full := range append(prefixes, blobs...) {
		if name := strings.TrimPrefix(full, d.prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Delete removes one blob, or every blob below a virtual directory when name
// ends with a slash.
func (d *AzureDriver) Delete(ctx context.Context, name string) error {
	if err := pkgstorage.ValidateObjectName(name); err != nil {
		return err
	}
	if !strings.HasSuffix(name, "/") {
		return d.deleteBlob(ctx, d.prefix+name)
	}

	blobs, err := d.api.ListFlat(ctx, d.container, d.prefix+name)
	if err != nil {
		return fmt.Errorf("list blobs in %s: %w", d.prefix+name, err)
	}
	for _, blob := range blobs {
		if err := d.deleteBlob(ctx, blob); err != nil {
			return err
		}
	}
	return nil
}

func (d *AzureDriver) deleteBlob(ctx context.Context, blob string) error {
	err := d.api.DeleteBlob(ctx, d.container, blob)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete blob %s: %w", blob, err)
	}
	return nil
}
