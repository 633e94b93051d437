package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
)

// invalidCatalogName is the SQLSTATE for a database that does not exist.
const invalidCatalogName = "3D000"

// Adapter implements connector.Connector for PostgreSQL installs running
// through the PG4WP drop-in.
type Adapter struct {
	cfg     Config
	dialect *Dialect
}

// NewAdapter creates a new PostgreSQL adapter
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, dialect: NewDialect()}
}

func (p *Adapter) Dialect() connector.Dialect {
	return p.dialect
}

func (p *Adapter) Validate() error {
	if p.cfg.DBName == "" {
		return errors.New("postgresql: database name is required")
	}
	return nil
}

// Connect establishes a connection to PostgreSQL
func (p *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	logger := common.GetLogger().WithDriver(p.dialect.GetDriverName())

	db, err := sql.Open("pgx", p.cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrDBConnect, err)
	}
	db.SetMaxOpenConns(constants.DefaultMaxOpenConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLife)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Debug("ping failed", "error", err)
		if IsMissingDatabase(err) {
			return nil, fmt.Errorf("%w %q: %v", connector.ErrDBSelect, p.cfg.DBName, err)
		}
		return nil, fmt.Errorf("%w: %v", connector.ErrDBConnect, err)
	}
	logger.Debug("PostgreSQL database connection established")
	return db, nil
}

// IsMissingDatabase reports whether err is the server saying the requested
// database does not exist.
func IsMissingDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidCatalogName
}
