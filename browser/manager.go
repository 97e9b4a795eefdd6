package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrLaunchFailed is returned when neither the primary attempts nor the
	// fallback launch could start a browser.
	ErrLaunchFailed = errors.New("browser launch failed")

	// ErrNavigationFailed is returned when the target page did not load
	// after the navigation retry.
	ErrNavigationFailed = errors.New("navigation failed")
)

// Structured events emitted by the session manager.
const (
	EventLaunchAttempt    = "browser launch attempt"
	EventLaunchFailed     = "browser launch failed"
	EventLaunchFallback   = "browser fallback launch"
	EventLaunched         = "browser launched"
	EventNavigationFailed = "navigation attempt failed"
	EventSessionClosed    = "browser session closed"
	EventTeardownFailed   = "browser teardown failed"
	EventSessionRecovered = "browser session panic recovered"
)

const (
	defaultUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultViewportWidth   = 1200
	defaultViewportHeight  = 800
	defaultMaxSessions     = 4
	defaultLaunchAttempts  = 3
	defaultNavigationTries = 2
)

// Config holds browser session settings.
type Config struct {
	BinPath  string
	Headless bool

	LaunchAttempts int
	LaunchBackoff  time.Duration

	NavigationAttempts   int
	NavigationRetryDelay time.Duration
	NavigationTimeout    time.Duration
	DevNavigationTimeout time.Duration
	Settle               time.Duration
	DevSettle            time.Duration

	UserAgent   string
	MaxSessions int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Headless:             true,
		LaunchAttempts:       defaultLaunchAttempts,
		LaunchBackoff:        time.Second,
		NavigationAttempts:   defaultNavigationTries,
		NavigationRetryDelay: 2 * time.Second,
		NavigationTimeout:    30 * time.Second,
		DevNavigationTimeout: 60 * time.Second,
		Settle:               3 * time.Second,
		DevSettle:            10 * time.Second,
		UserAgent:            defaultUserAgent,
		MaxSessions:          defaultMaxSessions,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LaunchAttempts <= 0 {
		c.LaunchAttempts = d.LaunchAttempts
	}
	if c.NavigationAttempts <= 0 {
		c.NavigationAttempts = d.NavigationAttempts
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = d.NavigationTimeout
	}
	if c.DevNavigationTimeout <= 0 {
		c.DevNavigationTimeout = d.DevNavigationTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = d.MaxSessions
	}
	return c
}

// SessionOptions customise the page opened for one session.
type SessionOptions struct {
	Width  int
	Height int
}

// Manager launches one browser per operation and tears it down afterwards.
// It holds no per-request state; the semaphore only bounds how many
// browser processes run at once.
type Manager struct {
	cfg      Config
	launcher Launcher
	sem      *semaphore.Weighted
	metrics  *metrics.Metrics
	logger   logger.Logger
}

// NewManager creates a session manager. A nil launcher selects RodLauncher.
func NewManager(cfg Config, l Launcher, m *metrics.Metrics, log logger.Logger) *Manager {
	cfg = cfg.withDefaults()
	if l == nil {
		l = RodLauncher{}
	}
	return &Manager{
		cfg:      cfg,
		launcher: l,
		sem:      semaphore.NewWeighted(cfg.MaxSessions),
		metrics:  m,
		logger:   log.WithField("component", "browser"),
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Launch starts a browser suited to targetURL. Failed attempts back off
// linearly; after the last one a single fallback launch with the reduced
// argument set is tried before giving up with ErrLaunchFailed.
func (m *Manager) Launch(ctx context.Context, targetURL string) (*Instance, error) {
	dev := IsDevHost(targetURL)
	args := ArgsFor(dev)

	var lastErr error
	for attempt := 1; attempt <= m.cfg.LaunchAttempts; attempt++ {
		m.logger.Info(ctx, EventLaunchAttempt, map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": m.cfg.LaunchAttempts,
			"dev_host":     dev,
		})

		inst, err := m.launcher.Launch(ctx, LaunchRequest{
			Args:     args,
			BinPath:  m.cfg.BinPath,
			Headless: m.cfg.Headless,
		})
		m.metrics.LaunchAttempt("primary", err == nil)
		if err == nil {
			m.logger.Info(ctx, EventLaunched, map[string]interface{}{
				"attempt": attempt,
				"mode":    "primary",
			})
			return inst, nil
		}

		lastErr = err
		m.logger.Warn(ctx, EventLaunchFailed, map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < m.cfg.LaunchAttempts {
			if err := Pause(ctx, time.Duration(attempt)*m.cfg.LaunchBackoff); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
			}
		}
	}

	m.logger.Warn(ctx, EventLaunchFallback, map[string]interface{}{
		"last_error": lastErr.Error(),
	})
	inst, err := m.launcher.Launch(ctx, LaunchRequest{
		Args:     WithoutDebugPort(args),
		Headless: m.cfg.Headless,
		Fallback: true,
	})
	m.metrics.LaunchAttempt("fallback", err == nil)
	if err != nil {
		m.logger.Error(ctx, EventLaunchFailed, map[string]interface{}{
			"mode":  "fallback",
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w after %d attempts: %v (fallback: %v)", ErrLaunchFailed, m.cfg.LaunchAttempts, lastErr, err)
	}

	m.logger.Info(ctx, EventLaunched, map[string]interface{}{
		"mode": "fallback",
	})
	return inst, nil
}

// WithSession launches a browser, opens targetURL and runs fn against the
// loaded page. The page and browser are closed on every exit path; close
// errors are logged and never replace fn's result. A panic inside fn is
// recovered and returned as an error.
func (m *Manager) WithSession(ctx context.Context, targetURL string, opts SessionOptions, fn func(*Session) error) (err error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for browser slot: %w", err)
	}
	defer m.sem.Release(1)

	inst, err := m.Launch(ctx, targetURL)
	if err != nil {
		return err
	}

	sess := &Session{
		Timeouts: m.cfg.TimeoutsFor(targetURL),
		DevHost:  IsDevHost(targetURL),
		instance: inst,
		logger:   m.logger,
	}
	defer sess.close(ctx)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, EventSessionRecovered, map[string]interface{}{
				"panic": fmt.Sprint(r),
				"url":   targetURL,
			})
			err = fmt.Errorf("browser session: %v", r)
		}
	}()

	if err := sess.open(ctx, m.cfg.UserAgent, opts); err != nil {
		return err
	}
	if err := m.navigate(ctx, sess, targetURL); err != nil {
		return err
	}
	if err := Pause(ctx, sess.Timeouts.Settle); err != nil {
		return err
	}

	return fn(sess)
}

func (m *Manager) navigate(ctx context.Context, sess *Session, targetURL string) error {
	event := proto.PageLifecycleEventNameNetworkAlmostIdle
	if sess.DevHost {
		event = proto.PageLifecycleEventNameDOMContentLoaded
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.NavigationAttempts; attempt++ {
		lastErr = sess.Navigate(targetURL, event)
		if lastErr == nil {
			return nil
		}
		m.logger.Warn(ctx, EventNavigationFailed, map[string]interface{}{
			"attempt": attempt,
			"url":     targetURL,
			"error":   lastErr.Error(),
		})
		if attempt < m.cfg.NavigationAttempts {
			if err := Pause(ctx, m.cfg.NavigationRetryDelay); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrNavigationFailed, targetURL, err)
			}
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrNavigationFailed, targetURL, lastErr)
}

// Session is one open page inside a dedicated browser process.
type Session struct {
	Page     *rod.Page
	Timeouts Timeouts
	DevHost  bool

	instance *Instance
	logger   logger.Logger
}

func (s *Session) open(ctx context.Context, userAgent string, opts SessionOptions) error {
	page, err := s.instance.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	s.Page = page.Context(ctx)

	if err := s.Page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultViewportWidth
	}
	if height <= 0 {
		height = defaultViewportHeight
	}
	if err := s.Page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	return nil
}

// Navigate loads targetURL and waits for the lifecycle event, bounded by
// the session's navigation timeout.
func (s *Session) Navigate(targetURL string, event proto.PageLifecycleEventName) error {
	p := s.Page.Timeout(s.Timeouts.Navigation)
	defer p.CancelTimeout()

	wait := p.WaitNavigation(event)
	if err := p.Navigate(targetURL); err != nil {
		return err
	}
	wait()
	return p.GetContext().Err()
}

// URL returns the page's current location, or "" when it cannot be read.
func (s *Session) URL() string {
	if s.Page == nil {
		return ""
	}
	info, err := s.Page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *Session) close(ctx context.Context) {
	if s.Page != nil {
		if err := s.Page.Close(); err != nil {
			s.logger.Warn(ctx, EventTeardownFailed, map[string]interface{}{
				"target": "page",
				"error":  err.Error(),
			})
		}
	}
	if err := s.instance.Close(); err != nil {
		s.logger.Warn(ctx, EventTeardownFailed, map[string]interface{}{
			"target": "browser",
			"error":  err.Error(),
		})
	}
	s.logger.Debug(ctx, EventSessionClosed, nil)
}

// Pause waits for d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
