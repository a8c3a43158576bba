package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureOptions configures the client used for wasbs:// locations. A
// connection string takes precedence over the account fields.
type AzureOptions struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
	// Endpoint overrides the blob endpoint, e.g. an Azurite emulator.
	Endpoint string
}

// ResolvedConnectionString returns the connection string handed to azblob.
func (o AzureOptions) ResolvedConnectionString() (string, error) {
	if cs := strings.TrimSpace(o.ConnectionString); cs != "" {
		return cs, nil
	}
	name := strings.TrimSpace(o.AccountName)
	key := strings.TrimSpace(o.AccountKey)
	if name == "" || key == "" {
		return "", errors.New("azure account name and account key are required for wasbs:// locations")
	}
	if ep := strings.TrimSpace(o.Endpoint); ep != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s", name, key, ep), nil
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net", name, key), nil
}

// NewAzureClient creates an Azure Blob Storage client.
func NewAzureClient(opts AzureOptions) (*azblob.Client, error) {
	cs, err := opts.ResolvedConnectionString()
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClientFromConnectionString(cs, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}
	return client, nil
}
