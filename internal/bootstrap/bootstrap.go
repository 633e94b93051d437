package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store"
	"github.com/danielbachhuber/host-check-command/internal/wpconfig"
)

// Options tune how much of the environment the bootstrapper overrides.
type Options struct {
	// URL replaces the site URL the same way WP-CLI's --url does.
	URL string
	// DBTimeout bounds connecting, and separately each query made through
	// the runtime's store for as long as it stays open.
	DBTimeout time.Duration
}

// UploadDir is the main site's public upload directory.
type UploadDir struct {
	BasePath string
	BaseURL  string
}

// Runtime is the minimal slice of a loaded WordPress: settings, a database
// handle and the URLs derived from them. It is not mutated after Bootstrap
// returns.
type Runtime struct {
	InstallPath string
	ContentDir  string
	PluginDir   string
	Settings    wpconfig.Settings

	store    *store.Store
	siteURL  string
	uploads  UploadDir
	loginURL string
}

// Bootstrap opens the database named by cfg and resolves the site URL and
// upload directory. It never loads plugins, themes or cron.
//
// Errors: wpconfig.ErrMalformedConfig when the settings cannot describe a
// connection, store.ErrDBConnect / store.ErrDBSelect from the connection.
func Bootstrap(ctx context.Context, cfg *wpconfig.Config, opts Options) (*Runtime, error) {
	logger := common.GetLogger().WithComponent("bootstrap")

	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	timeout := opts.DBTimeout
	if timeout <= 0 {
		timeout = constants.DefaultDBTimeout
	}

	contentDir := settings.ContentPath(cfg.InstallPath)
	rt := &Runtime{
		InstallPath: cfg.InstallPath,
		ContentDir:  contentDir,
		PluginDir:   filepath.Join(contentDir, constants.PluginsDir),
		Settings:    settings,
	}

	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := store.Open(dbCtx, storeConfig(cfg.InstallPath, settings, timeout))
	if err != nil {
		if errors.Is(err, store.ErrDBConnect) || errors.Is(err, store.ErrDBSelect) {
			return nil, err
		}
		// anything else is a setting the store refused, such as the prefix
		return nil, fmt.Errorf("%w: %v", wpconfig.ErrMalformedConfig, err)
	}
	rt.store = st
	logger.Debug("database ready", "engine", settings.Engine(), "prefix", settings.TablePrefix)

	siteOption := ""
	if settings.SiteURL == "" {
		siteOption = rt.option(ctx, constants.OptionSiteURL)
	}
	rt.siteURL = ResolveSiteURL(settings, siteOption, opts.URL)

	rt.uploads = ResolveUploadDir(UploadInputs{
		InstallPath:   cfg.InstallPath,
		ContentDir:    contentDir,
		ContentURL:    settings.ContentURL,
		Uploads:       settings.Uploads,
		UploadPath:    rt.option(ctx, constants.OptionUploadPath),
		UploadURLPath: rt.option(ctx, constants.OptionUploadURLPath),
		SiteURL:       rt.siteURL,
	})
	rt.loginURL = ResolveLoginURL(rt.siteURL, settings.ForceSSLAdmin)

	logger.Debug("runtime resolved", "site_url", rt.siteURL,
		"upload_path", rt.uploads.BasePath, "upload_url", rt.uploads.BaseURL)
	return rt, nil
}

// option reads an option, treating query failures as an empty value the way
// $wpdb suppresses them.
func (rt *Runtime) option(ctx context.Context, name string) string {
	v, err := rt.store.GetOption(ctx, name, "")
	if err != nil {
		common.LogWarn("option lookup failed", "option", name, "error", err)
		return ""
	}
	return v
}

func storeConfig(installPath string, s wpconfig.Settings, timeout time.Duration) store.Config {
	cfg := store.Config{
		Driver:       s.Engine(),
		TableNames:   store.NewTableNames(s.TablePrefix, s.CustomUserTable),
		QueryTimeout: timeout,
	}
	switch s.Engine() {
	case constants.EngineSQLite:
		cfg.DriverConfig = &store.SqliteConfig{Path: s.SQLitePath(installPath)}
	case constants.EnginePostgres:
		cfg.DriverConfig = &store.PostgresConfig{
			Host: s.DBHost, User: s.DBUser, Password: s.DBPassword, DBName: s.DBName, Timeout: timeout,
		}
	default:
		cfg.DriverConfig = &store.MySQLConfig{
			Host: s.DBHost, User: s.DBUser, Password: s.DBPassword, DBName: s.DBName,
			Charset: s.DBCharset, Timeout: timeout,
		}
	}
	return cfg
}

// Store exposes the database for diagnostics.
func (rt *Runtime) Store() *store.Store { return rt.store }

// SiteURL returns the resolved site URL without a trailing slash.
func (rt *Runtime) SiteURL() string { return rt.siteURL }

// UploadDir returns the main site's upload directory.
func (rt *Runtime) UploadDir() UploadDir { return rt.uploads }

// LoginURL returns the wp-login.php URL.
func (rt *Runtime) LoginURL() string { return rt.loginURL }

// Close releases the database handle.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	return rt.store.Close()
}
