package sqlite

import (
	"fmt"

	"github.com/danielbachhuber/host-check-command/internal/store/connector"
)

// SQLite configuration constants
const (
	busyTimeoutMS = 5000 // 5 seconds in milliseconds
)

type Config struct {
	Path string
}

// FormatDSN opens the database file read-only; the probe never writes.
func (c *Config) FormatDSN() string {
	return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", c.Path, busyTimeoutMS)
}

// Connector returns the adapter for this configuration.
func (c *Config) Connector() connector.Connector {
	return NewAdapter(*c)
}
