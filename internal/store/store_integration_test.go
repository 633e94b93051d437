package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// waitForDSN pings the DSN until it responds or timeout elapses.
func waitForDSN(driver, dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		db, err := sql.Open(driver, dsn)
		if err == nil {
			pingErr := db.Ping()
			_ = db.Close()
			if pingErr == nil {
				return nil
			}
			lastErr = pingErr
		} else {
			lastErr = err
		}
		time.Sleep(500 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for %s", driver)
	}
	return lastErr
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) tc.Container {
	t.Helper()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		// Skip on CI envs that cannot run containers, rather than failing whole suite
		t.Skipf("skipping %s container test: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	return c
}

func seedWordPressTables(t *testing.T, db *sql.DB, dateType string) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE wp_options (option_id INTEGER PRIMARY KEY, option_name VARCHAR(191) NOT NULL, option_value TEXT NOT NULL)`,
		`CREATE TABLE wp_users (ID INTEGER PRIMARY KEY, user_login VARCHAR(60) NOT NULL)`,
		fmt.Sprintf(`CREATE TABLE wp_posts (ID INTEGER PRIMARY KEY, post_status VARCHAR(20) NOT NULL, post_date %[1]s NOT NULL, post_date_gmt %[1]s NOT NULL)`, dateType),
		`INSERT INTO wp_options VALUES (1, 'siteurl', 'https://example.com'), (2, 'active_plugins', '` + activePluginsValue + `')`,
		`INSERT INTO wp_users VALUES (1, 'admin'), (2, 'editor')`,
		`INSERT INTO wp_posts VALUES (1, 'publish', '2024-01-01 10:00:00', '2024-01-01 09:00:00'), (2, 'publish', '2024-03-01 10:00:00', '2024-03-01 09:00:00'), (3, 'draft', '2024-05-01 10:00:00', '2024-05-01 09:00:00')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
}

func assertSeededStore(t *testing.T, st *Store) {
	t.Helper()
	ctx := context.Background()
	if v, err := st.GetOption(ctx, "siteurl", ""); err != nil || v != "https://example.com" {
		t.Fatalf("siteurl: %q %v", v, err)
	}
	if n, err := st.CountUsers(ctx); err != nil || n != 2 {
		t.Fatalf("users: %d %v", n, err)
	}
	if n, err := st.CountPublishedPosts(ctx); err != nil || n != 2 {
		t.Fatalf("posts: %d %v", n, err)
	}
	if d, ok, err := st.LastPublishedDate(ctx); err != nil || !ok || d != "2024-03-01 09:00:00" {
		t.Fatalf("last post date: %q %v %v", d, ok, err)
	}
	if p, err := st.ActivePlugins(ctx); err != nil || len(p) != 2 {
		t.Fatalf("plugins: %v %v", p, err)
	}
}

// Integration test with MySQL via testcontainers
func TestMySQLStore_ConnectAndSelect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()

	c := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "root",
			"MYSQL_DATABASE":      "wordpress",
			"MYSQL_USER":          "wp",
			"MYSQL_PASSWORD":      "wp",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("3306/tcp"),
			wait.ForLog("ready for connections").WithOccurrence(2),
		),
	})
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	port := mapped.Port()

	raw := fmt.Sprintf("wp:wp@tcp(%s:%s)/wordpress", host, port)
	if err := waitForDSN("mysql", raw, 60*time.Second); err != nil {
		t.Fatalf("mysql not ready: %v", err)
	}
	seed, err := sql.Open("mysql", raw)
	if err != nil {
		t.Fatal(err)
	}
	seedWordPressTables(t, seed, "DATETIME")
	_ = seed.Close()

	cfg := Config{
		Driver:     DriverMySQL,
		TableNames: NewTableNames("wp_", ""),
		DriverConfig: &MySQLConfig{
			Host: host + ":" + port, User: "wp", Password: "wp", DBName: "wordpress",
		},
	}
	st, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	assertSeededStore(t, st)

	cfg.DriverConfig = &MySQLConfig{Host: host + ":" + port, User: "wp", Password: "wp", DBName: "missing"}
	if _, err := Open(ctx, cfg); !errors.Is(err, ErrDBSelect) {
		t.Fatalf("expected ErrDBSelect for unknown database, got %v", err)
	}
	cfg.DriverConfig = &MySQLConfig{Host: host + ":" + port, User: "wp", Password: "wrong", DBName: "wordpress"}
	if _, err := Open(ctx, cfg); !errors.Is(err, ErrDBConnect) {
		t.Fatalf("expected ErrDBConnect for bad credentials, got %v", err)
	}
}

// Integration test with PostgreSQL via testcontainers
func TestPostgresStore_ConnectAndSelect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	c := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "wordpress",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		),
	})
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	port := mapped.Port()

	raw := fmt.Sprintf("postgres://test:test@%s:%s/wordpress?sslmode=disable", host, port)
	if err := waitForDSN("pgx", raw, 30*time.Second); err != nil {
		t.Fatalf("postgres not ready: %v", err)
	}
	seed, err := sql.Open("pgx", raw)
	if err != nil {
		t.Fatal(err)
	}
	seedWordPressTables(t, seed, "TIMESTAMP")
	_ = seed.Close()

	cfg := Config{
		Driver:     DriverPostgresql,
		TableNames: NewTableNames("wp_", ""),
		DriverConfig: &PostgresConfig{
			Host: host + ":" + port, User: "test", Password: "test", DBName: "wordpress",
		},
	}
	st, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	assertSeededStore(t, st)

	cfg.DriverConfig = &PostgresConfig{Host: host + ":" + port, User: "test", Password: "test", DBName: "missing"}
	if _, err := Open(ctx, cfg); !errors.Is(err, ErrDBSelect) {
		t.Fatalf("expected ErrDBSelect for unknown database, got %v", err)
	}
}
