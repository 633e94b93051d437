package connector

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"strings"
)

var (
	// ErrDBConnect means the database server could not be reached or refused
	// the credentials.
	ErrDBConnect = errors.New("error establishing a database connection")
	// ErrDBSelect means the server answered but the named database could not
	// be selected.
	ErrDBSelect = errors.New("cannot select database")
)

// Dialect describes the SQL differences between engines that the read-only
// queries care about.
type Dialect interface {
	// GetPlaceholder returns the bind marker for the 1-based argument index.
	GetPlaceholder(index int) string
	GetDriverName() string
}

// Connector opens a read-only handle on one engine, classifying failures as
// ErrDBConnect or ErrDBSelect.
type Connector interface {
	Connect(ctx context.Context) (*sql.DB, error)
	Validate() error
	Dialect() Dialect
}

// Endpoint is a parsed DB_HOST value.
type Endpoint struct {
	Host   string
	Port   int
	Socket string
}

// Address renders host:port for TCP dialing.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseHost understands the DB_HOST forms WordPress accepts: "host",
// "host:port", "host:/path/to.sock", "/path/to.sock" and ":port".
func ParseHost(dbHost, defaultHost string, defaultPort int) Endpoint {
	ep := Endpoint{Host: defaultHost, Port: defaultPort}
	h := strings.TrimSpace(dbHost)
	if h == "" {
		return ep
	}
	if strings.HasPrefix(h, "/") {
		ep.Socket = h
		return ep
	}
	// bracketed IPv6 literal, optionally with a port
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end > 0 {
			ep.Host = h[1:end]
			rest := h[end+1:]
			if p, err := strconv.Atoi(strings.TrimPrefix(rest, ":")); err == nil && strings.HasPrefix(rest, ":") {
				ep.Port = p
			}
			return ep
		}
	}
	host, tail, found := strings.Cut(h, ":")
	if host != "" {
		ep.Host = host
	}
	if !found {
		return ep
	}
	if strings.HasPrefix(tail, "/") {
		ep.Socket = tail
		return ep
	}
	if p, err := strconv.Atoi(tail); err == nil {
		ep.Port = p
	}
	return ep
}
