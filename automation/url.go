package automation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hairizuanbinnoorazman/pageagent/browser"
)

var (
	// ErrInvalidURL is returned before any browser work when a URL cannot be
	// analysed or automated.
	ErrInvalidURL = errors.New("invalid url")

	// ErrUnsupportedAction is returned by Automate for unknown actions.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrMissingParameter is returned by Automate when an action's required
	// parameter is absent.
	ErrMissingParameter = errors.New("missing parameter")
)

const (
	msgInvalidFormat     = "Invalid URL format"
	msgInternalAPI       = "Cannot analyze internal API endpoints"
	msgUnsupportedScheme = "Only HTTP and HTTPS protocols are supported"
)

// ValidateURL checks rawURL in a fixed order: it must parse as an absolute
// URL, a loopback URL must not point at an internal API path, and the scheme
// must be http or https.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, msgInvalidFormat)
	}
	if browser.IsDevHost(u.String()) && strings.Contains(u.Path, "/api/") {
		return fmt.Errorf("%w: %s", ErrInvalidURL, msgInternalAPI)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, msgUnsupportedScheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, msgInvalidFormat)
	}
	return nil
}
