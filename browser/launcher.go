package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// LaunchRequest describes one attempt to start a browser process.
type LaunchRequest struct {
	Args     []string
	BinPath  string
	Headless bool

	// Fallback marks the reduced-argument launch after primary attempts failed.
	Fallback bool
}

// Launcher starts browser processes. RodLauncher is the production
// implementation; tests substitute fakes to exercise retry behaviour.
type Launcher interface {
	Launch(ctx context.Context, req LaunchRequest) (*Instance, error)
}

// Instance is one running browser process and its connection.
type Instance struct {
	Browser *rod.Browser
	kill    func()
}

// NewInstance wraps a connected browser. kill, when not nil, terminates the
// process and removes its profile directory.
func NewInstance(b *rod.Browser, kill func()) *Instance {
	return &Instance{Browser: b, kill: kill}
}

// Close disconnects from the browser and terminates the process.
func (i *Instance) Close() error {
	if i == nil {
		return nil
	}
	var err error
	if i.Browser != nil {
		err = i.Browser.Close()
	}
	if i.kill != nil {
		i.kill()
	}
	return err
}

// RodLauncher launches Chromium through rod's launcher.
type RodLauncher struct{}

// Launch starts Chromium with req.Args and connects to it. A fallback
// request ignores BinPath and lets rod locate or download a browser.
func (RodLauncher) Launch(ctx context.Context, req LaunchRequest) (*Instance, error) {
	l := launcher.New().Context(ctx).Headless(req.Headless)
	if req.BinPath != "" && !req.Fallback {
		l = l.Bin(req.BinPath)
	}
	for _, arg := range req.Args {
		name, value := splitArg(arg)
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("start browser process: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	return NewInstance(b, func() {
		l.Kill()
		l.Cleanup()
	}), nil
}

// LookPath reports the browser binary rod would use, if any.
func LookPath() (string, bool) {
	return launcher.LookPath()
}
