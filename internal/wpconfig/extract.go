package wpconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
)

var (
	// ErrNoInstallation means wp-includes/version.php is missing or unreadable.
	ErrNoInstallation = errors.New("no WordPress installation found")
	// ErrNoConfig means wp-config.php was found neither in the install
	// directory nor one level up.
	ErrNoConfig = errors.New("wp-config.php not found")
	// ErrMalformedConfig marks a config file that cannot be used safely. It is
	// fatal rather than a host status.
	ErrMalformedConfig = errors.New("malformed wp-config.php")
)

var settingsInclude = regexp.MustCompile(`^\s*require.+wp-settings\.php`)

// Config is the result of evaluating an installation's wp-config.php.
type Config struct {
	InstallPath string
	ConfigPath  string
	Version     string
	Values      Values
}

// Settings decodes the recognized keys of the config.
func (c *Config) Settings() (Settings, error) {
	return DecodeSettings(c.Values)
}

// Exists reports whether installPath looks like a WordPress install, i.e.
// wp-includes/version.php is a readable regular file.
func Exists(installPath string) bool {
	f, err := os.Open(filepath.Join(installPath, constants.VersionFile))
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && st.Mode().IsRegular()
}

// DetectVersion evaluates wp-includes/version.php and returns $wp_version.
func DetectVersion(installPath string) (string, error) {
	p := filepath.Join(installPath, constants.VersionFile)
	src, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoInstallation, err)
	}
	in := NewInterpreter(map[string]any{"ABSPATH": absPath(installPath)})
	if err := in.Eval(stripOpenTag(string(src))); err != nil {
		return "", fmt.Errorf("evaluate %s: %w", p, err)
	}
	v, _ := in.Values().Variable("wp_version")
	return v, nil
}

// Locate finds wp-config.php the way WP-CLI does: in the install directory,
// else in its parent as long as the parent is not a separate install.
func Locate(installPath string) (string, error) {
	candidates := []string{filepath.Join(installPath, constants.ConfigFile)}
	parent := filepath.Dir(filepath.Clean(installPath))
	if !isFile(filepath.Join(parent, constants.SettingsFile)) {
		candidates = append(candidates, filepath.Join(parent, constants.ConfigFile))
	}
	for _, c := range candidates {
		if !isFile(c) {
			continue
		}
		resolved, err := filepath.EvalSymlinks(c)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", c, err)
		}
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	return "", ErrNoConfig
}

// FilterSettingsInclude drops the lines that hand control to wp-settings.php.
// A config without such a line is not a recognizable wp-config.php.
func FilterSettingsInclude(src string) (string, error) {
	lines := strings.Split(src, "\n")
	kept := lines[:0]
	found := false
	for _, line := range lines {
		if settingsInclude.MatchString(line) {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return "", fmt.Errorf("%w: wp-settings.php is not loaded directly", ErrMalformedConfig)
	}
	return strings.Join(kept, "\n"), nil
}

// ReplacePathConsts rewrites __FILE__ and __DIR__ into literals naming the
// resolved config file and its directory.
func ReplacePathConsts(src, configPath string) string {
	r := strings.NewReplacer(
		"__FILE__", phpQuote(configPath),
		"__DIR__", phpQuote(filepath.Dir(configPath)),
	)
	return r.Replace(src)
}

// Load evaluates the config file at configPath for the given install.
func Load(installPath, configPath string, getenv func(string) (string, bool)) (Values, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return Values{}, fmt.Errorf("%w: %v", ErrNoConfig, err)
	}
	src, err := FilterSettingsInclude(string(raw))
	if err != nil {
		return Values{}, err
	}
	src = stripOpenTag(ReplacePathConsts(src, configPath))

	in := NewInterpreter(map[string]any{"ABSPATH": absPath(installPath)})
	in.SetEnvLookup(getenv)
	if err := in.Eval(src); err != nil {
		return Values{}, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	return in.Values(), nil
}

// Extract runs every step in order: existence check, version detection,
// config location and evaluation. A version.php that cannot be evaluated
// is logged and leaves Version empty. When the config cannot be found the
// partial Config is returned alongside ErrNoConfig so the version can still
// be reported.
func Extract(installPath string) (*Config, error) {
	if !Exists(installPath) {
		return nil, ErrNoInstallation
	}
	version, err := DetectVersion(installPath)
	if errors.Is(err, ErrNoInstallation) {
		return nil, err
	}
	if err != nil {
		common.LogWarn("version detection failed", "error", err)
	}
	cfg := &Config{InstallPath: installPath, Version: version}

	configPath, err := Locate(installPath)
	if err != nil {
		return cfg, err
	}
	values, err := Load(installPath, configPath, nil)
	if err != nil {
		return nil, err
	}
	common.LogDebug("config evaluated", "config_path", configPath,
		"constants", len(values.Constants), "variables", len(values.Variables))
	cfg.ConfigPath = configPath
	cfg.Values = values
	return cfg, nil
}

// absPath renders ABSPATH with its trailing slash.
func absPath(installPath string) string {
	return strings.TrimRight(filepath.ToSlash(installPath), "/") + "/"
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

func phpQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
