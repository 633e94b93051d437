package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
)

// Adapter implements connector.Connector for MySQL
type Adapter struct {
	cfg     Config
	dialect *Dialect
}

// NewAdapter creates a new MySQL adapter
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, dialect: NewDialect()}
}

func (a *Adapter) Dialect() connector.Dialect {
	return a.dialect
}

func (a *Adapter) Validate() error {
	if a.cfg.DBName == "" {
		return errors.New("mysql: database name is required")
	}
	return nil
}

// Connect mirrors how WordPress brings up its database: first the server
// connection, then selection of the named database. The two failures are
// reported as different errors.
func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	logger := common.GetLogger().WithDriver(a.dialect.GetDriverName())

	server, err := open(ctx, a.cfg.FormatDSN(false))
	if err != nil {
		logger.Debug("server connection failed", "error", err)
		return nil, fmt.Errorf("%w: %v", connector.ErrDBConnect, err)
	}
	_ = server.Close()

	db, err := open(ctx, a.cfg.FormatDSN(true))
	if err != nil {
		logger.Debug("database selection failed", "database", a.cfg.DBName, "error", err)
		var me *driver.MySQLError
		if errors.As(err, &me) {
			return nil, fmt.Errorf("%w %q: %v", connector.ErrDBSelect, a.cfg.DBName, err)
		}
		return nil, fmt.Errorf("%w: %v", connector.ErrDBConnect, err)
	}
	logger.Debug("MySQL database connection established")
	return db, nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(constants.DefaultMaxOpenConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLife)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
