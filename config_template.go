package rotatebackups

import _ "embed"

// DefaultConfig contains the example configuration written by `rotate-backups init`.
//
//go:embed rotate-backups.ini.example
var DefaultConfig []byte

// ConfigTemplate returns a safe copy of the example configuration.
func ConfigTemplate() []byte {
	buf := make([]byte, len(DefaultConfig))
	copy(buf, DefaultConfig)
	return buf
}
