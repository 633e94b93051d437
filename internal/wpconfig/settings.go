package wpconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/util"
)

// Settings are the config values the bootstrapper understands.
type Settings struct {
	DBName     string `mapstructure:"DB_NAME"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBCharset  string `mapstructure:"DB_CHARSET"`

	TablePrefix     string `mapstructure:"table_prefix"`
	CustomUserTable string `mapstructure:"CUSTOM_USER_TABLE"`

	Multisite         bool   `mapstructure:"MULTISITE"`
	DomainCurrentSite string `mapstructure:"DOMAIN_CURRENT_SITE"`
	PathCurrentSite   string `mapstructure:"PATH_CURRENT_SITE"`

	SiteURL       string `mapstructure:"WP_SITEURL"`
	Home          string `mapstructure:"WP_HOME"`
	ContentDir    string `mapstructure:"WP_CONTENT_DIR"`
	ContentURL    string `mapstructure:"WP_CONTENT_URL"`
	Uploads       string `mapstructure:"UPLOADS"`
	ForceSSLAdmin bool   `mapstructure:"FORCE_SSL_ADMIN"`

	// Drop-in database layers: SQLite Database Integration and PG4WP.
	DBEngine string `mapstructure:"DB_ENGINE"`
	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDir    string `mapstructure:"DB_DIR"`
	DBFile   string `mapstructure:"DB_FILE"`
}

var boolSettings = map[string]bool{"MULTISITE": true, "FORCE_SSL_ADMIN": true}

// connectionSettings must not be null when the config sets them: a null
// here means the expression could not be evaluated, and guessing a default
// would point the queries at the wrong database or tables.
var connectionSettings = []string{"DB_NAME", "DB_USER", "DB_PASSWORD", "DB_HOST", "table_prefix"}

// DecodeSettings maps evaluated values onto Settings. PHP scalars are
// normalized first so that e.g. define('MULTISITE', 'yes') decodes the way
// PHP would treat it in a boolean context.
func DecodeSettings(v Values) (Settings, error) {
	flat := v.Flat()
	var unevaluated []string
	for _, k := range connectionSettings {
		if val, ok := flat[k]; ok && val == nil {
			unevaluated = append(unevaluated, k)
		}
	}
	if len(unevaluated) > 0 {
		return Settings{}, fmt.Errorf("%w: could not evaluate %s", ErrMalformedConfig, strings.Join(unevaluated, ", "))
	}

	input := make(map[string]any, len(flat))
	for k, val := range flat {
		if val == nil {
			continue
		}
		if boolSettings[k] {
			input[k] = toBool(val)
			continue
		}
		input[k] = toString(val)
	}

	var s Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return Settings{}, err
	}
	if err := dec.Decode(input); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	if _, ok := flat["table_prefix"]; !ok {
		s.TablePrefix = constants.DefaultTablePrefix
	}
	if s.DBHost == "" {
		s.DBHost = constants.DefaultDBHost
	}
	return s, nil
}

// Engine names the database layer the install uses.
func (s Settings) Engine() string {
	switch {
	case util.TrimAndLower(s.DBEngine) == constants.EngineSQLite:
		return constants.EngineSQLite
	case util.TrimAndLower(s.DBDriver) == constants.EnginePostgres:
		return constants.EnginePostgres
	}
	return constants.EngineMySQL
}

// Validate checks that a connection can be attempted at all.
func (s Settings) Validate() error {
	if _, ok := util.TrimEmptyCheck(s.DBName); !ok && s.Engine() != constants.EngineSQLite {
		return fmt.Errorf("%w: DB_NAME is not defined", ErrMalformedConfig)
	}
	return nil
}

// ContentPath returns WP_CONTENT_DIR, defaulting to ABSPATH/wp-content.
func (s Settings) ContentPath(installPath string) string {
	if s.ContentDir != "" {
		return filepath.Clean(s.ContentDir)
	}
	return filepath.Join(installPath, constants.ContentDir)
}

// SQLitePath returns the database file used by the SQLite integration.
func (s Settings) SQLitePath(installPath string) string {
	dir := s.DBDir
	if dir == "" {
		dir = filepath.Join(s.ContentPath(installPath), constants.SQLiteDir)
	}
	file := s.DBFile
	if file == "" {
		file = constants.SQLiteFile
	}
	return filepath.Join(dir, file)
}
