package store

import (
	"fmt"
	"regexp"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
	"github.com/danielbachhuber/host-check-command/internal/store/mysql"
	"github.com/danielbachhuber/host-check-command/internal/store/postgresql"
	"github.com/danielbachhuber/host-check-command/internal/store/sqlite"
)

const (
	DriverMySQL      = constants.EngineMySQL
	DriverPostgresql = constants.EnginePostgres
	DriverSqlite     = constants.EngineSQLite
)

type Config struct {
	Driver       string `mapstructure:"driver"`
	TableNames   TableNames
	DriverConfig DriverConfig
	// QueryTimeout bounds each query; zero means constants.DefaultDBTimeout.
	QueryTimeout time.Duration
}

// DriverConfig is one of *mysql.Config, *postgresql.Config or *sqlite.Config.
type DriverConfig interface {
	Connector() connector.Connector
}

type MySQLConfig = mysql.Config
type PostgresConfig = postgresql.Config
type SqliteConfig = sqlite.Config

// TableNames holds the prefixed tables the read-only queries touch.
type TableNames struct {
	Options string
	Users   string
	Posts   string
}

// NewTableNames applies the table prefix. CUSTOM_USER_TABLE replaces the
// users table name verbatim, as WordPress does.
func NewTableNames(prefix, customUserTable string) TableNames {
	tn := TableNames{
		Options: prefix + constants.OptionsTable,
		Users:   prefix + constants.UsersTable,
		Posts:   prefix + constants.PostsTable,
	}
	if customUserTable != "" {
		tn.Users = customUserTable
	}
	return tn
}

var validTableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate rejects names that could not have come from a valid prefix.
func (tn TableNames) Validate() error {
	for _, name := range []string{tn.Options, tn.Users, tn.Posts} {
		if !validTableName.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}
