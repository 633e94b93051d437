package constants

import (
	"time"
)

// Installation layout, relative to the install root (ABSPATH)
const (
	VersionFile      = "wp-includes/version.php"
	ConfigFile       = "wp-config.php"
	SettingsFile     = "wp-settings.php"
	ContentDir       = "wp-content"
	PluginsDir       = "plugins"
	UploadsDir       = "uploads"
	LoginScript      = "wp-login.php"
	SQLiteDir        = "database"
	SQLiteFile       = ".ht.sqlite"
	MarkerFileSuffix = ".txt"
)

// Database Constants
const (
	DefaultMySQLPort       = 3306
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"
	DefaultDBHost          = "localhost"
	DefaultTablePrefix     = "wp_"
	DefaultCharset         = "utf8mb4"

	// Table names without prefix
	OptionsTable = "options"
	UsersTable   = "users"
	PostsTable   = "posts"

	// PostStatusPublish marks a published post row
	PostStatusPublish = "publish"

	// Engines understood by the bootstrapper
	EngineMySQL    = "mysql"
	EnginePostgres = "pgsql"
	EngineSQLite   = "sqlite"
)

// Option names read from the options table
const (
	OptionSiteURL       = "siteurl"
	OptionUploadPath    = "upload_path"
	OptionUploadURLPath = "upload_url_path"
	OptionCron          = "cron"
	OptionActivePlugins = "active_plugins"
	OptionStylesheet    = "stylesheet"

	CronVersionCheckHook = "wp_version_check"
)

// Time and Duration Constants
const (
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultDBTimeout      = 10 * time.Second
	DefaultMaxConnLife    = 5 * time.Minute
	DefaultMaxOpenConns   = 2
	CronTimeLayout        = "2006-01-02 15:04:05"
	DefaultUserAgent      = "host-check"
	DefaultArchiveCAEntry = "cacert.pem"
)

// StatusCodeUnavailable is rendered in place of an HTTP status code when no
// response was obtained at all.
const StatusCodeUnavailable = "NA"
