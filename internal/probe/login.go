package probe

import (
	"bytes"
	"context"
	"fmt"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/pkg/status"
)

const (
	// FormMarker is the username input of the login form. Matched case-sensitively.
	FormMarker = `name="log"`
	// MaintenancePhrase is printed by wp_maintenance(). Matched case-insensitively.
	MaintenancePhrase = "Briefly unavailable for scheduled maintenance. Check back in a minute."
	// FatalPhrase appears in PHP fatal error output. Matched case-insensitively.
	FatalPhrase = "Fatal error"
)

// Classify maps a login page body to a hosted-* status. The first matching
// signature wins: form marker, maintenance phrase, fatal phrase.
func Classify(body []byte) status.HostStatus {
	if bytes.Contains(body, []byte(FormMarker)) {
		return status.HostedValidLogin
	}
	lower := bytes.ToLower(body)
	switch {
	case bytes.Contains(lower, bytes.ToLower([]byte(MaintenancePhrase))):
		return status.HostedMaintenance
	case bytes.Contains(lower, bytes.ToLower([]byte(FatalPhrase))):
		return status.HostedPHPFatal
	default:
		return status.HostedBrokenLogin
	}
}

// Login fetches the login page and classifies it.
type Login struct {
	client Requester
	logger *common.Logger
}

func NewLogin(client Requester) *Login {
	return &Login{
		client: client,
		logger: common.GetLogger().WithComponent("probe").WithStage("login"),
	}
}

// Check is only meaningful once the liveness probe returned status.Hosted.
func (l *Login) Check(ctx context.Context, urls LoginURLResolver) status.HostStatus {
	res := l.client.Get(ctx, urls.LoginURL())
	st := Classify(res.Body)
	code := res.Code()
	switch st {
	case status.HostedValidLogin:
		l.logger.Info(fmt.Sprintf("Yes: wp-login loads as expected (HTTP code %s)", code))
	case status.HostedMaintenance:
		l.logger.Info(fmt.Sprintf("No: WordPress is in maintenance mode (HTTP code %s)", code))
	case status.HostedPHPFatal:
		l.logger.Info(fmt.Sprintf("No: WordPress has a PHP fatal error (HTTP code %s)", code))
	default:
		l.logger.Info(fmt.Sprintf("No: wp-login is missing %s (HTTP code %s)", FormMarker, code))
	}
	return st
}
