// Package wptest builds throwaway WordPress installs backed by SQLite for
// tests that need a real filesystem layout and database.
package wptest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const (
	Version = "6.4.2"

	ActivePlugins = `a:3:{i:0;s:19:"akismet/akismet.php";i:1;s:9:"hello.php";i:2;s:19:"akismet/akismet.php";}`
	Cron          = `a:2:{i:1700003600;a:1:{s:16:"wp_version_check";a:1:{s:32:"40cd750bba9870f18aada2478b24840a";a:3:{s:8:"schedule";s:10:"twicedaily";s:4:"args";a:0:{}s:8:"interval";i:43200;}}}s:7:"version";i:2;}`
	// CronTime is the wp_version_check timestamp in Cron, rendered as Y-m-d H:i:s UTC.
	CronTime = "2023-11-14 23:13:20"
	Theme    = "twentytwentyfour"
	LastPost = "2024-03-01 09:00:00"
)

// SQLiteConfig is a wp-config.php selecting the SQLite integration.
const SQLiteConfig = `<?php
define( 'DB_ENGINE', 'sqlite' );
define( 'DB_NAME', 'wordpress' );
define( 'DB_USER', '' );
define( 'DB_PASSWORD', '' );
$table_prefix = 'wp_';
if ( ! defined( 'ABSPATH' ) ) {
	define( 'ABSPATH', __DIR__ . '/' );
}
require_once ABSPATH . 'wp-settings.php';
`

// Site is an install rooted in a temp directory.
type Site struct {
	Root   string
	DBPath string
}

// UploadsDir is where markers are written for the default layout.
func (s *Site) UploadsDir() string {
	return filepath.Join(s.Root, "wp-content", "uploads")
}

// NewSite creates version.php, wp-config.php, the uploads directory and a
// seeded SQLite database whose siteurl is siteURL.
func NewSite(t testing.TB, siteURL string) *Site {
	t.Helper()
	root := filepath.Join(t.TempDir(), "wordpress")
	s := &Site{
		Root:   root,
		DBPath: filepath.Join(root, "wp-content", "database", ".ht.sqlite"),
	}
	WriteFile(t, filepath.Join(root, "wp-includes", "version.php"),
		fmt.Sprintf("<?php\n$wp_version = '%s';\n$wp_db_version = 56657;\n", Version))
	WriteFile(t, filepath.Join(root, "wp-config.php"), SQLiteConfig)
	if err := os.MkdirAll(s.UploadsDir(), 0o755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	s.seed(t, siteURL)
	return s
}

func (s *Site) seed(t testing.TB, siteURL string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(s.DBPath), 0o755); err != nil {
		t.Fatalf("mkdir database: %v", err)
	}
	db := s.open(t)
	defer func() { _ = db.Close() }()
	stmts := []string{
		`CREATE TABLE wp_options (option_id INTEGER PRIMARY KEY AUTOINCREMENT, option_name TEXT NOT NULL UNIQUE, option_value TEXT NOT NULL, autoload TEXT NOT NULL DEFAULT 'yes')`,
		`CREATE TABLE wp_users (ID INTEGER PRIMARY KEY AUTOINCREMENT, user_login TEXT NOT NULL)`,
		`CREATE TABLE wp_posts (ID INTEGER PRIMARY KEY AUTOINCREMENT, post_status TEXT NOT NULL, post_date TEXT NOT NULL, post_date_gmt TEXT NOT NULL)`,
		`INSERT INTO wp_users (user_login) VALUES ('admin'), ('editor'), ('author')`,
		`INSERT INTO wp_posts (post_status, post_date, post_date_gmt) VALUES
			('publish', '2024-01-01 10:00:00', '2024-01-01 09:00:00'),
			('publish', '2024-03-01 10:00:00', '2024-03-01 09:00:00'),
			('draft', '2024-05-01 10:00:00', '2024-05-01 09:00:00')`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed %q: %v", q, err)
		}
	}
	for name, value := range map[string]string{
		"siteurl":        siteURL,
		"home":           siteURL,
		"stylesheet":     Theme,
		"active_plugins": ActivePlugins,
		"cron":           Cron,
	} {
		s.SetOption(t, name, value)
	}
}

func (s *Site) open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", s.DBPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

// SetOption inserts or replaces an option row.
func (s *Site) SetOption(t testing.TB, name, value string) {
	t.Helper()
	db := s.open(t)
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(`INSERT OR REPLACE INTO wp_options (option_name, option_value) VALUES (?, ?)`, name, value); err != nil {
		t.Fatalf("set option %s: %v", name, err)
	}
}

// WriteConfig replaces wp-config.php.
func (s *Site) WriteConfig(t testing.TB, content string) {
	t.Helper()
	WriteFile(t, filepath.Join(s.Root, "wp-config.php"), content)
}

// WriteFile writes content, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
