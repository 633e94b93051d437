package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
)

// Adapter implements connector.Connector for installs using the SQLite
// Database Integration plugin.
type Adapter struct {
	cfg     Config
	dialect *Dialect
}

// NewAdapter creates a new SQLite adapter
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, dialect: NewDialect()}
}

func (s *Adapter) Dialect() connector.Dialect {
	return s.dialect
}

func (s *Adapter) Validate() error {
	if s.cfg.Path == "" {
		return errors.New("sqlite: database path is required")
	}
	return nil
}

// Connect opens the database file. A missing file is the SQLite equivalent
// of a database that cannot be selected.
func (s *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	logger := common.GetLogger().WithDriver(s.dialect.GetDriverName())

	st, err := os.Stat(s.cfg.Path)
	if err != nil || !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%w %q: database file not found", connector.ErrDBSelect, s.cfg.Path)
	}

	db, err := sql.Open("sqlite", s.cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrDBConnect, err)
	}
	// SQLite allows only one writer; a single reader is all the probe needs.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", connector.ErrDBConnect, err)
	}
	logger.Debug("SQLite database opened", "path", s.cfg.Path)
	return db, nil
}
