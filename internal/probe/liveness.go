package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/pkg/status"
	"github.com/google/uuid"
)

// Liveness writes a marker into the upload directory and fetches it back by
// its public URL.
type Liveness struct {
	client   Requester
	newToken func() string
	logger   *common.Logger
}

// NewLiveness returns a probe using client for the fetch.
func NewLiveness(client Requester) *Liveness {
	return &Liveness{
		client:   client,
		newToken: NewToken,
		logger:   common.GetLogger().WithComponent("probe").WithStage("liveness"),
	}
}

// NewToken returns 32 random hex characters.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Check returns status.Hosted when the fetched body is byte-for-byte the
// marker content, else status.Missing with the HTTP code or NA.
//
// The marker is removed on every return path. ErrWriteMarker and
// ErrDeleteMarker are the only errors.
func (l *Liveness) Check(ctx context.Context, uploads UploadDirResolver) (st status.HostStatus, err error) {
	dir := uploads.UploadDir()
	token := l.newToken()
	name := token + constants.MarkerFileSuffix
	path := filepath.Join(dir.BasePath, name)

	if werr := os.WriteFile(path, []byte(token), 0o644); werr != nil {
		// a partially written marker must not outlive the run either
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			l.logger.Warn("cleanup after failed write", "path", path, "error", rerr)
		}
		return status.Unset, fmt.Errorf("%w to path: %s: %v", ErrWriteMarker, path, werr)
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil {
			st = status.Unset
			err = errors.Join(err, fmt.Errorf("%w: %s: %v", ErrDeleteMarker, path, rerr))
		}
	}()

	res := l.client.Get(ctx, strings.TrimRight(dir.BaseURL, "/")+"/"+name)
	if res.Available() && bytes.Equal(res.Body, []byte(token)) {
		l.logger.Info(fmt.Sprintf("Yes: WordPress install is hosted here (HTTP code %s)", res.Code()))
		return status.Hosted, nil
	}
	l.logger.Info(fmt.Sprintf("Missing: WordPress install isn't hosted here (HTTP code %s)", res.Code()))
	return status.Missing(res.Code()), nil
}
