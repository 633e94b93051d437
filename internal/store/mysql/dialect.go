package mysql

// Dialect implements SQL dialect for MySQL and MariaDB
type Dialect struct{}

// NewDialect creates a new MySQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns MySQL-style placeholders (?)
func (d *Dialect) GetPlaceholder(int) string {
	return "?"
}

// GetDriverName returns the driver name for logging
func (d *Dialect) GetDriverName() string {
	return "mysql"
}
