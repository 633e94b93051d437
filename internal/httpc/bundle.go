package httpc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
)

// ErrNoBundle is returned by resolvers that cannot produce a CA bundle path.
var ErrNoBundle = errors.New("cannot find SSL certificate bundle")

// BundleResolver supplies the path of a PEM CA bundle.
type BundleResolver interface {
	Resolve() (string, error)
}

// DefaultBundlePaths are the distro locations searched after the explicit
// path and SSL_CERT_FILE.
var DefaultBundlePaths = []string{
	"/etc/ssl/certs/ca-certificates.crt",
	"/etc/pki/tls/certs/ca-bundle.crt",
	"/etc/ssl/ca-bundle.pem",
	"/etc/pki/tls/cacert.pem",
	"/etc/pki/ca-trust/extracted/pem/tls-ca-bundle.pem",
	"/etc/ssl/cert.pem",
	"/usr/local/etc/openssl/cert.pem",
}

// SearchResolver returns the first readable file among Explicit,
// $SSL_CERT_FILE and Paths.
type SearchResolver struct {
	Explicit string
	Paths    []string
	// Getenv defaults to os.LookupEnv.
	Getenv func(string) (string, bool)
}

func (r SearchResolver) Resolve() (string, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.LookupEnv
	}
	candidates := make([]string, 0, len(r.Paths)+2)
	if p := strings.TrimSpace(r.Explicit); p != "" {
		candidates = append(candidates, p)
	}
	if p, ok := getenv("SSL_CERT_FILE"); ok && strings.TrimSpace(p) != "" {
		candidates = append(candidates, strings.TrimSpace(p))
	}
	candidates = append(candidates, r.Paths...)

	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && fi.Mode().IsRegular() {
			return c, nil
		}
		common.LogDebug("ca bundle candidate skipped", "path", c)
	}
	return "", ErrNoBundle
}

// ArchiveResolver extracts a CA bundle from a zip archive, such as a packaged
// distribution, into a temp file the TLS stack can read. The file lives until
// Close.
type ArchiveResolver struct {
	Archive string
	// Entry is matched against the entry's full name or its base name.
	// Defaults to constants.DefaultArchiveCAEntry.
	Entry string

	mu        sync.Mutex
	extracted string
}

func (r *ArchiveResolver) Resolve() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extracted != "" {
		return r.extracted, nil
	}

	zr, err := zip.OpenReader(r.Archive)
	if err != nil {
		return "", fmt.Errorf("%w: open archive %s: %v", ErrNoBundle, r.Archive, err)
	}
	defer func() { _ = zr.Close() }()

	entry := strings.TrimSpace(r.Entry)
	if entry == "" {
		entry = constants.DefaultArchiveCAEntry
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name != entry && path.Base(f.Name) != entry {
			continue
		}
		out, err := extractEntry(f)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoBundle, err)
		}
		r.extracted = out
		return out, nil
	}
	return "", fmt.Errorf("%w: %s has no entry %s", ErrNoBundle, r.Archive, entry)
}

func extractEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp("", "hostcheck-cacert-*.pem")
	if err != nil {
		return "", fmt.Errorf("create temp bundle: %w", err)
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp bundle: %w", err)
	}
	return tmp.Name(), nil
}

// Close removes the extracted bundle, if any.
func (r *ArchiveResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extracted == "" {
		return nil
	}
	err := os.Remove(r.extracted)
	r.extracted = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
