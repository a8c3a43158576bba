package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bit2swaz/rotate-backups/pkg/storage"
)

var _ storage.Driver = (*LocalDriver)(nil)

// LocalDriver implements storage.Driver for a directory on the local filesystem.
// Every entry of the directory, file or subdirectory, is a backup.
type LocalDriver struct {
	root string
}

// New creates a LocalDriver for dir, which must exist and be a directory.
func New(dir string) (*LocalDriver, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local directory is empty")
	}
	root, err := filepath.Abs(expandHome(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve directory %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &LocalDriver{root: root}, nil
}

// Location returns the absolute directory path.
func (d *LocalDriver) Location() string {
	return d.root
}

// List returns the names of the entries in the directory.
func (d *LocalDriver) List(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", d.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named file or directory tree. Symbolic links are removed
// without following them.
func (d *LocalDriver) Delete(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := validateName(name); err != nil {
		return err
	}
	path := filepath.Join(d.root, name)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return fmt.Errorf("%w: %q", storage.ErrInvalidName, name)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator) {
		return fmt.Errorf("%w: %q contains a path separator", storage.ErrInvalidName, name)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
