package browser

import (
	"net"
	"net/url"
	"strings"
	"time"
)

// IsDevHost reports whether rawURL points at a loopback or local
// development host. Such hosts get wider timeouts and a longer settle wait.
func IsDevHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "":
		return false
	case host == "localhost", host == "0.0.0.0", strings.HasSuffix(host, ".localhost"):
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// Timeouts are the host-dependent waits applied to one session.
type Timeouts struct {
	// Navigation bounds page loads, element waits and navigation-after-click.
	Navigation time.Duration

	// Settle is the pause after the page has loaded and before it is used.
	Settle time.Duration
}

// TimeoutsFor returns the timeouts for rawURL under cfg.
func (c Config) TimeoutsFor(rawURL string) Timeouts {
	if IsDevHost(rawURL) {
		return Timeouts{Navigation: c.DevNavigationTimeout, Settle: c.DevSettle}
	}
	return Timeouts{Navigation: c.NavigationTimeout, Settle: c.Settle}
}
