package rotation

import "fmt"

// ConfigurationError reports an invalid rotation setting for a target.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error in %s (%q): %s", e.Field, e.Value, e.Reason)
}

// PatternError reports a malformed include or exclude pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// StorageError represents a failed list or delete against a storage backend.
type StorageError struct {
	Operation string
	Location  string
	Name      string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("storage error: operation=%s location=%s: %v", e.Operation, e.Location, e.Err)
	}
	return fmt.Sprintf("storage error: operation=%s location=%s name=%s: %v", e.Operation, e.Location, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newConfigurationError(field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}
