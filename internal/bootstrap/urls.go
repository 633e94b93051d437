package bootstrap

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/wpconfig"
)

// ResolveSiteURL picks the site URL: WP_SITEURL, else the siteurl option,
// then the override, then the multisite domain constants which replace the
// host and path while keeping the scheme.
func ResolveSiteURL(s wpconfig.Settings, siteOption, override string) string {
	site := s.SiteURL
	if site == "" {
		site = siteOption
	}
	if override != "" {
		site = withScheme(override)
	}
	if s.DomainCurrentSite != "" {
		site = replaceHost(site, s.DomainCurrentSite, s.PathCurrentSite)
	}
	return strings.TrimRight(site, "/")
}

func withScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

func replaceHost(site, domain, path string) string {
	u, err := url.Parse(withScheme(site))
	if err != nil || u.Scheme == "" {
		u = &url.URL{Scheme: "http"}
	}
	u.Host = domain
	u.Path = strings.TrimRight(path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// UploadInputs are the values wp_upload_dir() consults for the main site.
type UploadInputs struct {
	InstallPath   string
	ContentDir    string
	ContentURL    string // WP_CONTENT_URL, may be empty
	Uploads       string // UPLOADS constant, may be empty
	UploadPath    string // upload_path option
	UploadURLPath string // upload_url_path option
	SiteURL       string
}

// ResolveUploadDir follows wp_upload_dir() without the year/month subdir.
func ResolveUploadDir(in UploadInputs) UploadDir {
	const defaultRel = constants.ContentDir + "/" + constants.UploadsDir

	site := strings.TrimRight(in.SiteURL, "/")
	contentURL := strings.TrimRight(in.ContentURL, "/")
	if contentURL == "" {
		contentURL = site + "/" + constants.ContentDir
	}

	uploadPath := strings.TrimSpace(in.UploadPath)
	var dir string
	switch {
	case uploadPath == "" || uploadPath == defaultRel:
		dir = filepath.Join(in.ContentDir, constants.UploadsDir)
	case !filepath.IsAbs(uploadPath):
		dir = filepath.Join(in.InstallPath, uploadPath)
	default:
		dir = filepath.Clean(uploadPath)
	}

	baseURL := strings.TrimSpace(in.UploadURLPath)
	if baseURL == "" {
		if uploadPath == "" || uploadPath == defaultRel || filepath.Clean(uploadPath) == dir {
			baseURL = contentURL + "/" + constants.UploadsDir
		} else {
			baseURL = site + "/" + strings.TrimLeft(uploadPath, "/")
		}
	}

	if in.Uploads != "" {
		dir = filepath.Join(in.InstallPath, in.Uploads)
		baseURL = site + "/" + strings.Trim(in.Uploads, "/")
	}
	return UploadDir{BasePath: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// ResolveLoginURL returns site_url('wp-login.php'), upgraded to https when
// FORCE_SSL_ADMIN is set.
func ResolveLoginURL(siteURL string, forceSSL bool) string {
	login := strings.TrimRight(siteURL, "/") + "/" + constants.LoginScript
	if forceSSL && strings.HasPrefix(login, "http://") {
		login = "https://" + strings.TrimPrefix(login, "http://")
	}
	return login
}
