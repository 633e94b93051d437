package mysql

import (
	"os"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
	"github.com/danielbachhuber/host-check-command/internal/util"
)

// DefaultSockets are the server socket paths packaged MySQL and MariaDB
// builds listen on, in the order they are tried.
var DefaultSockets = []string{
	"/var/run/mysqld/mysqld.sock",
	"/run/mysqld/mysqld.sock",
	"/var/lib/mysql/mysql.sock",
	"/tmp/mysql.sock",
}

type Config struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	Timeout  time.Duration
	// Sockets overrides DefaultSockets.
	Sockets []string `mapstructure:"sockets"`
}

// FormatDSN builds a driver DSN. The schema is left out when withDB is false
// so the server connection can be checked on its own.
func (c *Config) FormatDSN(withDB bool) string {
	ep := connector.ParseHost(c.Host, constants.DefaultDBHost, constants.DefaultMySQLPort)
	if ep.Socket == "" && c.isBareLocalhost() {
		ep.Socket = c.localSocket()
	}

	cfg := driver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	if ep.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = ep.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = ep.Address()
	}
	if withDB {
		cfg.DBName = c.DBName
	}
	cfg.Params = map[string]string{"charset": util.TrimWithDefault(c.Charset, constants.DefaultCharset)}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultDBTimeout
	}
	cfg.Timeout = timeout
	cfg.ReadTimeout = timeout
	cfg.AllowNativePasswords = true
	return cfg.FormatDSN()
}

// isBareLocalhost reports whether DB_HOST names localhost without a port.
// mysqli takes that to mean the local server socket rather than TCP.
func (c *Config) isBareLocalhost() bool {
	h := strings.TrimSpace(c.Host)
	return h == "" || strings.EqualFold(h, "localhost")
}

// localSocket returns the first socket candidate present on disk, or "" to
// fall back to TCP.
func (c *Config) localSocket() string {
	candidates := c.Sockets
	if candidates == nil {
		candidates = DefaultSockets
	}
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// Connector returns the adapter for this configuration.
func (c *Config) Connector() connector.Connector {
	return NewAdapter(*c)
}
