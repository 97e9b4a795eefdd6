package browser

import "strings"

// baseArgs keeps headless Chromium stable inside containers and on CI hosts.
var baseArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--no-first-run",
	"--no-zygote",
	"--single-process",
	"--disable-gpu",
	"--disable-web-security",
	"--disable-extensions",
	"--disable-plugins",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-renderer-backgrounding",
	"--disable-field-trial-config",
	"--disable-back-forward-cache",
	"--disable-ipc-flooding-protection",
	"--no-default-browser-check",
	"--no-pings",
	"--password-store=basic",
	"--use-mock-keychain",
	"--disable-component-extensions-with-background-pages",
	"--disable-component-update",
	"--disable-default-apps",
}

var devHostArgs = []string{
	"--disable-translate",
	"--remote-debugging-port=0",
}

// The launcher keeps one value per switch, so disabled features are joined
// into a single --disable-features.
var (
	baseDisabledFeatures    = []string{"VizDisplayCompositor"}
	devHostDisabledFeatures = []string{"TranslateUI"}
)

// ArgsFor returns the primary launch arguments. Development hosts get a few
// extra switches, including an OS-assigned debugging port.
func ArgsFor(devHost bool) []string {
	args := make([]string, 0, len(baseArgs)+len(devHostArgs)+1)
	args = append(args, baseArgs...)
	features := baseDisabledFeatures
	if devHost {
		args = append(args, devHostArgs...)
		features = append(append([]string{}, features...), devHostDisabledFeatures...)
	}
	return append(args, "--disable-features="+strings.Join(features, ","))
}

// WithoutDebugPort returns args minus any remote-debugging-port switch.
// It is the reduced set used by the fallback launch.
func WithoutDebugPort(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if strings.Contains(a, "remote-debugging-port") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// splitArg turns "--name=value" into ("name", "value").
func splitArg(arg string) (string, string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, _ := strings.Cut(arg, "=")
	return name, value
}
