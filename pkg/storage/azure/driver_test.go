package azure

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgstorage "github.com/bit2swaz/rotate-backups/pkg/storage"
)

type fakeBlobs struct {
	mu        sync.Mutex
	blobs     map[string]struct{}
	deleteErr map[string]error
}

func newFakeBlobs(names ...string) *fakeBlobs {
	f := &fakeBlobs{blobs: make(map[string]struct{}), deleteErr: make(map[string]error)}
	for _, n := range names {
		f.blobs[n] = struct{}{}
	}
	return f
}

func (f *fakeBlobs) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.blobs))
	for n := range f.blobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *fakeBlobs) ListHierarchy(_ context.Context, _ string, prefix string) ([]string, []string, error) {
	var blobs, prefixes []string
	seen := make(map[string]bool)
	for _, n := range f.names() {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		rest := n[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			p := prefix + rest[:i+1]
			if !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
			continue
		}
		blobs = append(blobs, n)
	}
	return blobs, prefixes, nil
}

func (f *fakeBlobs) ListFlat(_ context.Context, _ string, prefix string) ([]string, error) {
	var out []string
	for _, n := range f.names() {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeBlobs) DeleteBlob(_ context.Context, _ string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteErr[name]; ok {
		return err
	}
	if _, ok := f.blobs[name]; !ok {
		return &azcore.ResponseError{ErrorCode: string(bloberror.BlobNotFound), StatusCode: http.StatusNotFound}
	}
	delete(f.blobs, name)
	return nil
}

func TestParseLocation(t *testing.T) {
	c, prefix, err := ParseLocation("wasbs://backups/mail")
	require.NoError(t, err)
	assert.Equal(t, "backups", c)
	assert.Equal(t, "mail/", prefix)

	c, prefix, err = ParseLocation("wasbs://backups@acct.blob.core.windows.net/mail/daily/")
	require.NoError(t, err)
	assert.Equal(t, "backups", c)
	assert.Equal(t, "mail/daily/", prefix)

	_, _, err = ParseLocation("gs://backups/mail")
	assert.Error(t, err)
	_, _, err = ParseLocation("wasbs:///mail")
	assert.Error(t, err)
}

func TestListReturnsDirectChildren(t *testing.T) {
	api := newFakeBlobs(
		"mail/mail-2024-03-01.tar",
		"mail/mail-2024-03-02.tar",
		"mail/full-2024-03-03/index",
		"mail/full-2024-03-03/data",
		"web/site-2024-03-01.tar",
	)
	d, err := New(api, "wasbs://backups/mail")
	require.NoError(t, err)
	assert.Equal(t, "wasbs://backups/mail/", d.Location())

	names, err := d.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mail-2024-03-01.tar", "mail-2024-03-02.tar", "full-2024-03-03/"}, names)
}

func TestDeleteBlobAndDirectory(t *testing.T) {
	api := newFakeBlobs(
		"mail/mail-2024-03-01.tar",
		"mail/full-2024-03-03/index",
		"mail/full-2024-03-03/data",
		"mail/full-2024-03-04/index",
	)
	d, err := New(api, "wasbs://backups/mail")
	require.NoError(t, err)

	require.NoError(t, d.Delete(context.Background(), "mail-2024-03-01.tar"))
	require.NoError(t, d.Delete(context.Background(), "full-2024-03-03/"))
	assert.Equal(t, []string{"mail/full-2024-03-04/index"}, api.names())

	assert.NoError(t, d.Delete(context.Background(), "mail-2024-03-01.tar"), "missing blobs are not an error")
}

func TestDeleteReportsFailures(t *testing.T) {
	api := newFakeBlobs("mail/mail-2024-03-01.tar")
	api.deleteErr["mail/mail-2024-03-01.tar"] = errors.New("lease is active")
	d, err := New(api, "wasbs://backups/mail")
	require.NoError(t, err)

	err = d.Delete(context.Background(), "mail-2024-03-01.tar")
	assert.ErrorContains(t, err, "lease is active")

	assert.ErrorIs(t, d.Delete(context.Background(), "a/b"), pkgstorage.ErrInvalidName)
}
