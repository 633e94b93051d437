package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
)

var (
	ErrDBConnect = connector.ErrDBConnect
	ErrDBSelect  = connector.ErrDBSelect
)

// Store runs the read-only lookups the health check needs against a
// WordPress database. Options are cached for the lifetime of the Store,
// which stands in for the object cache of a real request.
//
// Queries are written with "?" markers and rebound for the engine's dialect.
type Store struct {
	db      *sql.DB
	dialect connector.Dialect
	tn      TableNames
	timeout time.Duration
	logger  *common.Logger

	options map[string]cachedOption
}

type cachedOption struct {
	value string
	found bool
}

// Open connects using cfg and returns a Store over the resulting handle.
// Connection failures wrap ErrDBConnect or ErrDBSelect.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DriverConfig == nil {
		return nil, fmt.Errorf("store: no driver config for %q", cfg.Driver)
	}
	if err := cfg.TableNames.Validate(); err != nil {
		return nil, err
	}
	conn := cfg.DriverConfig.Connector()
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	db, err := conn.Connect(ctx)
	if err != nil {
		return nil, err
	}
	st := New(db, conn.Dialect(), cfg.TableNames)
	st.SetQueryTimeout(cfg.QueryTimeout)
	return st, nil
}

// New wraps an existing handle. Queries are bounded by
// constants.DefaultDBTimeout until SetQueryTimeout says otherwise.
func New(db *sql.DB, dialect connector.Dialect, tn TableNames) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		tn:      tn,
		timeout: constants.DefaultDBTimeout,
		logger:  common.GetLogger().WithDriver(dialect.GetDriverName()),
		options: map[string]cachedOption{},
	}
}

// SetQueryTimeout bounds every later query. Non-positive values keep the
// current bound.
func (s *Store) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind replaces each "?" with the dialect's placeholder.
func (s *Store) rebind(q string) string {
	if s.dialect.GetPlaceholder(1) == "?" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(s.dialect.GetPlaceholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanRow runs a single-row query under the query timeout and scans the
// row into dest. A query cut short by the deadline reports the context error.
func (s *Store) scanRow(ctx context.Context, query string, args []any, dest ...any) error {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.rebind(query)
	s.logger.Debug("query", "sql", q)
	err := s.db.QueryRowContext(qctx, q, args...).Scan(dest...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && qctx.Err() != nil {
		return fmt.Errorf("query not answered within %s: %w", s.timeout, qctx.Err())
	}
	return err
}

// QueryScalar returns the first column of the first row. found is false
// when the query matched no rows.
func (s *Store) QueryScalar(ctx context.Context, query string, args ...any) (value any, found bool, err error) {
	err = s.scanRow(ctx, query, args, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// GetOption returns the raw option_value for name, or def when the option
// does not exist.
func (s *Store) GetOption(ctx context.Context, name, def string) (string, error) {
	v, found, err := s.LookupOption(ctx, name)
	if err != nil || !found {
		return def, err
	}
	return v, nil
}

// LookupOption reads an option through the per-run cache. Misses are cached
// too.
func (s *Store) LookupOption(ctx context.Context, name string) (string, bool, error) {
	if c, ok := s.options[name]; ok {
		return c.value, c.found, nil
	}
	v, found, err := s.QueryScalar(ctx,
		fmt.Sprintf("SELECT option_value FROM %s WHERE option_name = ? LIMIT 1", s.tn.Options), name)
	if err != nil {
		return "", false, fmt.Errorf("get option %s: %w", name, err)
	}
	c := cachedOption{value: scalarString(v), found: found}
	s.options[name] = c
	return c.value, c.found, nil
}

// CountUsers returns the number of rows in the users table.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.scanRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tn.Users), nil, &n)
	return n, err
}

// CountPublishedPosts counts posts of any type with status publish.
func (s *Store) CountPublishedPosts(ctx context.Context) (int64, error) {
	var n int64
	err := s.scanRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE post_status = ?", s.tn.Posts),
		[]any{constants.PostStatusPublish}, &n)
	return n, err
}

// LastPublishedDate returns post_date_gmt of the newest published post by
// post_date, formatted as "Y-m-d H:i:s".
func (s *Store) LastPublishedDate(ctx context.Context) (string, bool, error) {
	v, found, err := s.QueryScalar(ctx,
		fmt.Sprintf("SELECT post_date_gmt FROM %s WHERE post_status = ? ORDER BY post_date DESC LIMIT 1", s.tn.Posts),
		constants.PostStatusPublish)
	if err != nil || !found {
		return "", false, err
	}
	return scalarString(v), true, nil
}

// scalarString normalizes driver values: MySQL returns []byte, pgx and
// modernc may return time.Time for datetime columns.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(constants.CronTimeLayout)
	}
	return fmt.Sprint(v)
}
