package hostcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/httpc"
	"github.com/danielbachhuber/host-check-command/internal/pipeline"
	"github.com/danielbachhuber/host-check-command/internal/probe"
	"github.com/danielbachhuber/host-check-command/internal/wpconfig"
	"github.com/danielbachhuber/host-check-command/pkg/status"
)

// Re-export commonly used types for public API

// Report is the outcome of one check.
type Report = status.Report

// HostStatus is the classification carried by a Report.
type HostStatus = status.HostStatus

// Diagnostics are the facts collected from a hosted install.
type Diagnostics = status.Diagnostics

// Fatal errors. Every other outcome is reported as a HostStatus.
var (
	ErrMalformedConfig = wpconfig.ErrMalformedConfig
	ErrWriteMarker     = probe.ErrWriteMarker
	ErrDeleteMarker    = probe.ErrDeleteMarker
)

// IsFatal reports whether err aborted the check rather than classifying it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMalformedConfig) || errors.Is(err, ErrWriteMarker) || errors.Is(err, ErrDeleteMarker)
}

// ClientOptions configure the probe HTTP client.
type ClientOptions struct {
	Timeout time.Duration
	// CABundle is tried before SSL_CERT_FILE and the distro bundle paths.
	CABundle string
	// CAArchive, when set, is a zip archive holding the bundle; it replaces
	// the filesystem search.
	CAArchive      string
	CAArchiveEntry string
	TLSMinVersion  string
	UserAgent      string
	BasicAuthUser  string
	// BasicAuthPassword is never logged.
	BasicAuthPassword string
}

// Options configure a check.
type Options struct {
	// URL overrides the site URL like WP-CLI's --url.
	URL       string
	DBTimeout time.Duration
	Client    ClientOptions
}

// Check runs every stage against the install at path.
func Check(ctx context.Context, path string, opts Options) (Report, error) {
	resolver, cleanup := NewBundleResolver(opts.Client)
	defer func() {
		if err := cleanup(); err != nil {
			common.LogWarn("remove extracted CA bundle", "error", err)
		}
	}()

	client := httpc.NewClient(resolver, httpc.Httpc{
		TlsConfig:         &tls.Config{MinVersion: httpc.ParseTLSVersion(opts.Client.TLSMinVersion)},
		Timeout:           opts.Client.Timeout,
		UserAgent:         opts.Client.UserAgent,
		BasicAuthUser:     opts.Client.BasicAuthUser,
		BasicAuthPassword: opts.Client.BasicAuthPassword,
	})
	return pipeline.New(client, pipeline.Options{URL: opts.URL, DBTimeout: opts.DBTimeout}).Run(ctx, path)
}

// NewBundleResolver picks the archive resolver when an archive is configured,
// else the filesystem search. cleanup removes anything the resolver extracted.
func NewBundleResolver(o ClientOptions) (resolver httpc.BundleResolver, cleanup func() error) {
	if o.CAArchive != "" {
		ar := &httpc.ArchiveResolver{Archive: o.CAArchive, Entry: o.CAArchiveEntry}
		return ar, ar.Close
	}
	return httpc.SearchResolver{Explicit: o.CABundle, Paths: httpc.DefaultBundlePaths}, func() error { return nil }
}
