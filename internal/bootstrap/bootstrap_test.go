package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielbachhuber/host-check-command/internal/store"
	"github.com/danielbachhuber/host-check-command/internal/wpconfig"
	"github.com/danielbachhuber/host-check-command/internal/wptest"
)

func extract(t *testing.T, root string) *wpconfig.Config {
	t.Helper()
	cfg, err := wpconfig.Extract(root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return cfg
}

func TestBootstrap_SQLite(t *testing.T) {
	site := wptest.NewSite(t, "https://example.com/")
	rt, err := Bootstrap(context.Background(), extract(t, site.Root), Options{})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if rt.SiteURL() != "https://example.com" {
		t.Fatalf("site url: %q", rt.SiteURL())
	}
	up := rt.UploadDir()
	if up.BasePath != site.UploadsDir() || up.BaseURL != "https://example.com/wp-content/uploads" {
		t.Fatalf("upload dir: %+v", up)
	}
	if rt.LoginURL() != "https://example.com/wp-login.php" {
		t.Fatalf("login url: %q", rt.LoginURL())
	}
	if rt.PluginDir != filepath.Join(site.Root, "wp-content", "plugins") {
		t.Fatalf("plugin dir: %q", rt.PluginDir)
	}
	theme, err := rt.Store().GetOption(context.Background(), "stylesheet", "")
	if err != nil || theme != wptest.Theme {
		t.Fatalf("stylesheet: %q %v", theme, err)
	}
}

func TestBootstrap_URLOverrides(t *testing.T) {
	site := wptest.NewSite(t, "https://old.example.com")
	site.WriteConfig(t, `<?php
define( 'DB_ENGINE', 'sqlite' );
define( 'MULTISITE', true );
define( 'DOMAIN_CURRENT_SITE', 'network.example.org' );
define( 'PATH_CURRENT_SITE', '/' );
define( 'FORCE_SSL_ADMIN', true );
require_once ABSPATH . 'wp-settings.php';
`)
	rt, err := Bootstrap(context.Background(), extract(t, site.Root), Options{URL: "http://cli.example.com"})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if rt.SiteURL() != "http://network.example.org" {
		t.Fatalf("site url: %q", rt.SiteURL())
	}
	if rt.LoginURL() != "https://network.example.org/wp-login.php" {
		t.Fatalf("login url: %q", rt.LoginURL())
	}
}

func TestBootstrap_MissingDatabaseFile(t *testing.T) {
	site := wptest.NewSite(t, "https://example.com")
	if err := os.Remove(site.DBPath); err != nil {
		t.Fatal(err)
	}
	_, err := Bootstrap(context.Background(), extract(t, site.Root), Options{})
	if !errors.Is(err, store.ErrDBSelect) {
		t.Fatalf("expected ErrDBSelect, got %v", err)
	}
}

func TestBootstrap_ConnectError(t *testing.T) {
	site := wptest.NewSite(t, "https://example.com")
	site.WriteConfig(t, `<?php
define( 'DB_NAME', 'wordpress' );
define( 'DB_USER', 'wp' );
define( 'DB_PASSWORD', 'wp' );
define( 'DB_HOST', '127.0.0.1:1' );
require_once ABSPATH . 'wp-settings.php';
`)
	_, err := Bootstrap(context.Background(), extract(t, site.Root), Options{})
	if !errors.Is(err, store.ErrDBConnect) {
		t.Fatalf("expected ErrDBConnect, got %v", err)
	}
}

func TestBootstrap_MissingDBName(t *testing.T) {
	site := wptest.NewSite(t, "https://example.com")
	site.WriteConfig(t, "<?php\ndefine( 'DB_USER', 'wp' );\nrequire_once ABSPATH . 'wp-settings.php';\n")
	_, err := Bootstrap(context.Background(), extract(t, site.Root), Options{})
	if !errors.Is(err, wpconfig.ErrMalformedConfig) {
		t.Fatalf("expected ErrMalformedConfig, got %v", err)
	}
}

func TestBootstrap_InvalidTablePrefix(t *testing.T) {
	site := wptest.NewSite(t, "https://example.com")
	site.WriteConfig(t, "<?php\ndefine( 'DB_ENGINE', 'sqlite' );\n$table_prefix = 'wp-';\nrequire_once ABSPATH . 'wp-settings.php';\n")
	_, err := Bootstrap(context.Background(), extract(t, site.Root), Options{})
	if !errors.Is(err, wpconfig.ErrMalformedConfig) {
		t.Fatalf("expected ErrMalformedConfig, got %v", err)
	}
}
