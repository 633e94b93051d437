package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// HostStatus is the single classification a run produces.
type HostStatus string

const (
	// Unset is the pseudo-state before any stage has decided.
	Unset HostStatus = ""

	NoWPExists     HostStatus = "no-wp-exists"
	NoWPConfig     HostStatus = "no-wp-config"
	ErrorDBConnect HostStatus = "error-db-connect"
	ErrorDBSelect  HostStatus = "error-db-select"

	// Hosted is intermediate: the login probe refines it into one of the
	// hosted-* states below.
	Hosted HostStatus = "hosted"

	HostedValidLogin  HostStatus = "hosted-valid-login"
	HostedMaintenance HostStatus = "hosted-maintenance"
	HostedPHPFatal    HostStatus = "hosted-php-fatal"
	HostedBrokenLogin HostStatus = "hosted-broken-login"

	missingPrefix = "missing-"
)

// Missing returns missing-<code>; code is a numeric HTTP status or NA.
func Missing(code string) HostStatus {
	return HostStatus(missingPrefix + code)
}

// IsMissing reports whether s is a missing-<code> status.
func (s HostStatus) IsMissing() bool {
	return strings.HasPrefix(string(s), missingPrefix)
}

// IsHosted reports whether the install was found to be served here.
func (s HostStatus) IsHosted() bool {
	return s == Hosted || strings.HasPrefix(string(s), string(Hosted)+"-")
}

// Terminal reports whether no further stage may change s.
func (s HostStatus) Terminal() bool {
	return s != Unset && s != Hosted
}

func (s HostStatus) String() string { return string(s) }

// Diagnostics are informational facts collected once the site is known to be
// hosted here. Nil fields render as JSON null.
type Diagnostics struct {
	WPVersionCheck *string  `json:"wp_version_check"`
	ActivePlugins  []string `json:"active_plugins"`
	ActiveTheme    *string  `json:"active_theme"`
	UserCount      *int64   `json:"user_count"`
	PostCount      *int64   `json:"post_count"`
	LastPostDate   *string  `json:"last_post_date"`
}

// Report is the final output of a run.
type Report struct {
	Path    string
	Status  HostStatus
	Version string
	Details Diagnostics
}

// SummaryLine renders "Summary: <path>, <status>, <version>".
func (r Report) SummaryLine() string {
	return fmt.Sprintf("Summary: %s, %s, %s", r.Path, r.Status, r.Version)
}

// DetailsJSON encodes Details as a single-line JSON object without HTML
// escaping.
func (r Report) DetailsJSON() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Details); err != nil {
		return "", fmt.Errorf("encode details: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// DetailsLine renders "Details: <json>".
func (r Report) DetailsLine() (string, error) {
	js, err := r.DetailsJSON()
	if err != nil {
		return "", err
	}
	return "Details: " + js, nil
}

// String returns a pointer to s, for populating Diagnostics.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int64) *int64 { return &n }
