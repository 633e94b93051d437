package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	hostcheck "github.com/danielbachhuber/host-check-command"
	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/httpc"
	"github.com/danielbachhuber/host-check-command/internal/util"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

type BasicAuthConfig struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

type ClientConfig struct {
	Timeout        string          `mapstructure:"timeout" yaml:"timeout"`
	CABundle       string          `mapstructure:"ca_bundle" yaml:"ca_bundle"`
	CAArchive      string          `mapstructure:"ca_archive" yaml:"ca_archive"`
	CAArchiveEntry string          `mapstructure:"ca_archive_entry" yaml:"ca_archive_entry"`
	MinTLSVersion  string          `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	UserAgent      string          `mapstructure:"user_agent" yaml:"user_agent"`
	BasicAuth      BasicAuthConfig `mapstructure:"basic_auth" yaml:"basic_auth"`
}

type DBConfig struct {
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

type ConfigDoc struct {
	// URL overrides the site URL, like WP-CLI's --url.
	URL     string        `mapstructure:"url" yaml:"url"`
	DB      DBConfig      `mapstructure:"db" yaml:"db"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", clean, err)
	}
	return nil
}

// ApplyOverrides copies every key explicitly set through flags or the
// environment on top of the file values.
func (c *ConfigDoc) ApplyOverrides(v *viper.Viper) {
	set := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	set("url", &c.URL)
	set("db.timeout", &c.DB.Timeout)
	set("client.timeout", &c.Client.Timeout)
	set("client.ca_bundle", &c.Client.CABundle)
	set("client.ca_archive", &c.Client.CAArchive)
	set("client.ca_archive_entry", &c.Client.CAArchiveEntry)
	set("client.min_tls_version", &c.Client.MinTLSVersion)
	set("client.user_agent", &c.Client.UserAgent)
	set("client.basic_auth.user", &c.Client.BasicAuth.User)
	set("client.basic_auth.password", &c.Client.BasicAuth.Password)
	set("logging.level", &c.Logging.Level)
	set("logging.format", &c.Logging.Format)
}

// Options converts the document into check options.
func (c *ConfigDoc) Options() (hostcheck.Options, error) {
	util.TrimStructFields(&c.Client)
	util.TrimStructFields(&c.DB)

	httpTimeout, err := parseDuration("client.timeout", c.Client.Timeout)
	if err != nil {
		return hostcheck.Options{}, err
	}
	dbTimeout, err := parseDuration("db.timeout", c.DB.Timeout)
	if err != nil {
		return hostcheck.Options{}, err
	}
	if v, ok := util.TrimEmptyCheck(c.Client.MinTLSVersion); ok && httpc.ParseTLSVersion(v) == 0 {
		return hostcheck.Options{}, fmt.Errorf("invalid client.min_tls_version: %s (valid: 1.0, 1.1, 1.2, 1.3)", v)
	}
	url, _ := util.TrimEmptyCheck(c.URL)
	return hostcheck.Options{
		URL:       url,
		DBTimeout: dbTimeout,
		Client: hostcheck.ClientOptions{
			Timeout:           httpTimeout,
			CABundle:          c.Client.CABundle,
			CAArchive:         c.Client.CAArchive,
			CAArchiveEntry:    c.Client.CAArchiveEntry,
			TLSMinVersion:     c.Client.MinTLSVersion,
			UserAgent:         c.Client.UserAgent,
			BasicAuthUser:     c.Client.BasicAuth.User,
			BasicAuthPassword: c.Client.BasicAuth.Password,
		},
	}, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	v, ok := util.TrimEmptyCheck(s)
	if !ok {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func (c *ConfigDoc) parseLogLevel() (common.LogLevel, error) {
	level := util.TrimAndLower(c.Logging.Level)
	switch level {
	case "error":
		return common.LogLevelError, nil
	case "warn", "warning":
		return common.LogLevelWarn, nil
	case "info", "":
		return common.LogLevelInfo, nil
	case "debug":
		return common.LogLevelDebug, nil
	default:
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings. Color
// output degrades to plain text when w is not a terminal.
func (c *ConfigDoc) SetupLogging(w io.Writer) error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	var logger *common.Logger
	format := util.TrimWithDefault(util.TrimAndLower(c.Logging.Format), "color")

	useColor := format == "color" || format == "colour"
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	}

	switch format {
	case "json":
		logger = common.NewJSONLogger(level, w)
	case "color", "colour", "text":
		if useColor {
			logger = common.NewColorLogger(level, w)
		} else {
			logger = common.NewTextLogger(level, w)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)

	common.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", util.TrimWithDefault(util.TrimAndLower(c.Logging.Level), "info"),
		"format", format,
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return nil
}
