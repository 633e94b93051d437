package postgresql

import (
	"net/url"
	"strconv"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/store/connector"
	"github.com/danielbachhuber/host-check-command/internal/util"
)

type Config struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Timeout  time.Duration
}

// FormatDSN builds a URL DSN accepted by pgx stdlib. Socket hosts go into
// the host query parameter.
func (c *Config) FormatDSN() string {
	ep := connector.ParseHost(c.Host, constants.DefaultDBHost, constants.DefaultPostgresPort)
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultDBTimeout
	}

	q := url.Values{}
	q.Set("sslmode", util.TrimWithDefault(c.SSLMode, constants.DefaultPostgresSSLMode))
	q.Set("connect_timeout", strconv.Itoa(int(timeout.Seconds())))

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Path:   "/" + c.DBName,
	}
	if ep.Socket != "" {
		q.Set("host", ep.Socket)
		q.Set("port", strconv.Itoa(ep.Port))
	} else {
		u.Host = ep.Address()
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connector returns the adapter for this configuration.
func (c *Config) Connector() connector.Connector {
	return NewAdapter(*c)
}
