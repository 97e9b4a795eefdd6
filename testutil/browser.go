package testutil

import (
	"os"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RequireBrowser returns a local Chromium binary or skips the test.
// Set SKIP_LIVE_TESTS to skip every browser-backed test.
func RequireBrowser(t *testing.T) string {
	t.Helper()
	if os.Getenv("SKIP_LIVE_TESTS") != "" {
		t.Skip("SKIP_LIVE_TESTS is set")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no local browser found")
	}
	return bin
}

// LivePage launches a headless browser for the duration of the test and
// returns a page whose document is html. An empty html leaves about:blank.
func LivePage(t *testing.T, html string) *rod.Page {
	t.Helper()
	bin := RequireBrowser(t)

	l := launcher.New().Bin(bin).Headless(true).NoSandbox(true)
	controlURL, err := l.Launch()
	if err != nil {
		t.Skipf("browser could not start: %v", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		t.Fatalf("failed to connect to browser: %v", err)
	}
	t.Cleanup(func() {
		_ = b.Close()
		l.Kill()
		l.Cleanup()
	})

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		t.Fatalf("failed to open page: %v", err)
	}
	if html != "" {
		if err := page.SetDocumentContent(html); err != nil {
			t.Fatalf("failed to set document content: %v", err)
		}
	}
	return page
}
