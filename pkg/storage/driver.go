package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned when a backend is asked to delete a name that
// does not refer to a direct child of its location.
var ErrInvalidName = errors.New("invalid backup name")

// Driver lists and removes backups at a single location.
type Driver interface {
	// Location identifies the directory or prefix the driver operates on.
	Location() string
	// List returns the names of the direct children of the location.
	List(ctx context.Context) ([]string, error)
	// Delete removes one child. Removing a name that no longer exists succeeds.
	Delete(ctx context.Context, name string) error
}

// ValidateObjectName checks a name handed to an object-store driver. A single
// trailing slash marks a directory-like prefix; any other slash is rejected.
func ValidateObjectName(name string) error {
	trimmed := strings.TrimSuffix(name, "/")
	if strings.TrimSpace(trimmed) == "" || trimmed == "." || trimmed == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.Contains(trimmed, "/") {
		return fmt.Errorf("%w: %q is not a direct child", ErrInvalidName, name)
	}
	return nil
}
