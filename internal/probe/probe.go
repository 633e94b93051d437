// Package probe implements the two HTTP checks that decide whether an install
// is served by its configured hostname: a marker-file round trip through the
// public upload URL, and a content check of the login page.
package probe

import (
	"context"
	"errors"

	"github.com/danielbachhuber/host-check-command/internal/bootstrap"
	"github.com/danielbachhuber/host-check-command/internal/httpc"
)

var (
	// ErrWriteMarker means the marker could not be written to the upload
	// directory. It aborts the run.
	ErrWriteMarker = errors.New("couldn't write test file")
	// ErrDeleteMarker means the marker could not be removed after the probe.
	// It aborts the run.
	ErrDeleteMarker = errors.New("couldn't delete test file")
)

// Requester fetches a URL. Implementations report transport failures as an
// unavailable Result rather than an error.
type Requester interface {
	Get(ctx context.Context, url string) httpc.Result
}

// UploadDirResolver supplies the public upload directory.
type UploadDirResolver interface {
	UploadDir() bootstrap.UploadDir
}

// LoginURLResolver supplies the login page URL.
type LoginURLResolver interface {
	LoginURL() string
}
