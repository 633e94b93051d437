package wpconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testVersionPHP = `<?php
/**
 * WordPress Version
 */
$wp_version = '6.4.2';
$wp_db_version = 56657;
$tinymce_version = '49110-20201110';
$required_php_version = '7.0.0';
`

const testConfigPHP = `<?php
define( 'DB_NAME', 'wordpress' );
define( 'DB_USER', 'wp' );
define( 'DB_PASSWORD', 'secret' );
define( 'DB_HOST', 'db.internal' );
$table_prefix = 'blog_';
define( 'CONFIG_FILE', __FILE__ );
define( 'CONFIG_DIR', __DIR__ );
if ( ! defined( 'ABSPATH' ) ) {
	define( 'ABSPATH', __DIR__ . '/' );
}
require_once ABSPATH . 'wp-settings.php';
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newInstall lays out a minimal install with version.php and, optionally, a
// wp-config.php next to it.
func newInstall(t *testing.T, config string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "site")
	writeFile(t, filepath.Join(root, "wp-includes", "version.php"), testVersionPHP)
	if config != "" {
		writeFile(t, filepath.Join(root, "wp-config.php"), config)
	}
	return root
}

func TestExtract_NoInstallation(t *testing.T) {
	_, err := Extract(t.TempDir())
	if !errors.Is(err, ErrNoInstallation) {
		t.Fatalf("expected ErrNoInstallation, got %v", err)
	}
}

func TestExtract_VersionFileIsDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "wp-includes", "version.php"), 0o755); err != nil {
		t.Fatal(err)
	}
	if Exists(root) {
		t.Fatalf("a directory named version.php is not an install")
	}
}

func TestExtract_NoConfig(t *testing.T) {
	root := newInstall(t, "")
	_, err := Extract(root)
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
}

func TestExtract_NoConfigKeepsVersion(t *testing.T) {
	cfg, err := Extract(newInstall(t, ""))
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
	if cfg == nil || cfg.Version != "6.4.2" {
		t.Fatalf("version should be reported without a config, got %+v", cfg)
	}
}

func TestExtract_UnreadableVersionIsNotFatal(t *testing.T) {
	root := newInstall(t, testConfigPHP)
	writeFile(t, filepath.Join(root, "wp-includes", "version.php"), "<?php\n$wp_version = '6.4.2;\n")

	cfg, err := Extract(root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if cfg.Version != "" {
		t.Fatalf("version: got %q", cfg.Version)
	}
	if got, _ := cfg.Values.Constant("DB_NAME"); got != "wordpress" {
		t.Fatalf("config should still be evaluated, DB_NAME = %q", got)
	}
}

func TestExtract_Full(t *testing.T) {
	root := newInstall(t, testConfigPHP)
	cfg, err := Extract(root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if cfg.Version != "6.4.2" {
		t.Fatalf("version: got %q", cfg.Version)
	}
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	if cfg.ConfigPath != filepath.Join(resolvedRoot, "wp-config.php") {
		t.Fatalf("config path: got %q", cfg.ConfigPath)
	}
	if got, _ := cfg.Values.Constant("CONFIG_FILE"); got != cfg.ConfigPath {
		t.Fatalf("__FILE__ should resolve to the config path, got %q", got)
	}
	if got, _ := cfg.Values.Constant("CONFIG_DIR"); got != resolvedRoot {
		t.Fatalf("__DIR__ should resolve to the config dir, got %q", got)
	}
	if _, ok := cfg.Values.Constants["ABSPATH"]; ok {
		t.Fatalf("ABSPATH is predefined and must not be reported")
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.DBName != "wordpress" || s.DBUser != "wp" || s.DBPassword != "secret" || s.DBHost != "db.internal" {
		t.Fatalf("unexpected db settings: %+v", s)
	}
	if s.TablePrefix != "blog_" {
		t.Fatalf("table prefix: got %q", s.TablePrefix)
	}
}

func TestLocate_ParentDirectory(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "wp")
	writeFile(t, filepath.Join(root, "wp-includes", "version.php"), testVersionPHP)
	writeFile(t, filepath.Join(parent, "wp-config.php"), testConfigPHP)

	p, err := Locate(root)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if filepath.Base(p) != "wp-config.php" || filepath.Base(filepath.Dir(p)) != filepath.Base(parent) {
		t.Fatalf("expected parent config, got %q", p)
	}

	// a parent that is itself an install owns its config
	writeFile(t, filepath.Join(parent, "wp-settings.php"), "<?php\n")
	if _, err := Locate(root); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig when the parent is a separate install, got %v", err)
	}
}

func TestLocate_ResolvesSymlink(t *testing.T) {
	shared := t.TempDir()
	target := filepath.Join(shared, "wp-config.php")
	writeFile(t, target, testConfigPHP)
	root := newInstall(t, "")
	if err := os.Symlink(target, filepath.Join(root, "wp-config.php")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cfg, err := Extract(root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	resolvedShared, _ := filepath.EvalSymlinks(shared)
	if got, _ := cfg.Values.Constant("CONFIG_DIR"); got != resolvedShared {
		t.Fatalf("__DIR__ should point at the symlink target dir, got %q want %q", got, resolvedShared)
	}
}

func TestFilterSettingsInclude(t *testing.T) {
	out, err := FilterSettingsInclude("<?php\ndefine('A', 1);\n  require_once( ABSPATH . 'wp-settings.php' );\n$x = 1;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "wp-settings") {
		t.Fatalf("settings include should be removed: %q", out)
	}
	if !strings.Contains(out, "define('A', 1);") || !strings.Contains(out, "$x = 1;") {
		t.Fatalf("other lines must survive: %q", out)
	}

	_, err = FilterSettingsInclude("<?php\ndefine('A', 1);\n// require wp-settings.php is commented\n")
	if !errors.Is(err, ErrMalformedConfig) {
		t.Fatalf("expected ErrMalformedConfig, got %v", err)
	}
}

func TestExtract_MalformedConfig(t *testing.T) {
	root := newInstall(t, "<?php\ndefine( 'DB_NAME', 'wordpress' );\n")
	if _, err := Extract(root); !errors.Is(err, ErrMalformedConfig) {
		t.Fatalf("expected ErrMalformedConfig, got %v", err)
	}
}

func TestReplacePathConsts(t *testing.T) {
	got := ReplacePathConsts("define('A', __DIR__ . '/x'); define('B', __FILE__);", "/srv/it's/wp-config.php")
	want := `define('A', '/srv/it\'s' . '/x'); define('B', '/srv/it\'s/wp-config.php');`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestDetectVersion(t *testing.T) {
	root := newInstall(t, "")
	v, err := DetectVersion(root)
	if err != nil {
		t.Fatalf("DetectVersion: %v", err)
	}
	if v != "6.4.2" {
		t.Fatalf("got %q", v)
	}
}
