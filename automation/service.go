package automation

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/executor"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
	"github.com/hairizuanbinnoorazman/pageagent/pagedata"
	"github.com/hairizuanbinnoorazman/pageagent/resolver"
	"github.com/hairizuanbinnoorazman/pageagent/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	EventAnalysisCompleted = "page analysis completed"
	EventAnalysisDegraded  = "page analysis degraded to fallback"
	EventAnalysisCached    = "page analysis served from cache"
	EventQuickAnalysis     = "quick page analysis failed"
	EventScreenshotStored  = "screenshot stored"
	EventScreenshotFailed  = "screenshot upload failed"
	EventScreenshotNoURL   = "screenshot url unavailable"
	EventActionCompleted   = "automation action completed"
)

const (
	defaultCacheSize        = 64
	defaultCacheTTL         = 5 * time.Minute
	defaultQuickTimeout     = 5 * time.Second
	defaultScreenshotPrefix = "screenshots/"
	screenshotNamePrefix    = "screenshot_"
)

// ScreenshotOptions control the captured image. Zero values take the
// defaults from Config.Screenshot.
type ScreenshotOptions struct {
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	FullPage bool `json:"fullPage"`
	Quality  int  `json:"quality"`
}

// DefaultScreenshotOptions is a 1200x800 full page JPEG at quality 80.
func DefaultScreenshotOptions() ScreenshotOptions {
	return ScreenshotOptions{Width: 1200, Height: 800, FullPage: true, Quality: 80}
}

func (o ScreenshotOptions) orDefaults(d ScreenshotOptions) ScreenshotOptions {
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = d.Quality
	}
	return o
}

type Config struct {
	// QuickHosts are host:port pairs analysed with a plain HTTP fetch before
	// a browser is launched.
	QuickHosts   []string
	QuickTimeout time.Duration

	CacheSize int
	CacheTTL  time.Duration

	Screenshot       ScreenshotOptions
	ScreenshotPrefix string
}

func DefaultConfig() Config {
	return Config{
		QuickHosts:       []string{"localhost:3000"},
		QuickTimeout:     defaultQuickTimeout,
		CacheSize:        defaultCacheSize,
		CacheTTL:         defaultCacheTTL,
		Screenshot:       DefaultScreenshotOptions(),
		ScreenshotPrefix: defaultScreenshotPrefix,
	}
}

// Analysis is the page context handed to the chat layer.
type Analysis struct {
	ScreenshotBase64 string             `json:"screenshot"`
	Snapshot         *pagedata.Snapshot `json:"analysis"`
	Description      string             `json:"visualDescription"`
	// Degraded is set when Snapshot is a canned fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// ErrScreenshotNotFound is returned by OpenScreenshot for unknown names.
var ErrScreenshotNotFound = errors.New("screenshot not found")

// Screenshot is one captured page image.
type Screenshot struct {
	// Path is the storage key, empty when the image was not stored.
	Path string `json:"path,omitempty"`
	// URL is the backend's link to the stored object: a presigned URL for
	// S3, the file location for local storage.
	URL      string             `json:"url,omitempty"`
	Base64   string             `json:"screenshot"`
	Snapshot *pagedata.Snapshot `json:"analysis"`
}

// Service runs page analysis and browser automation. Every call that needs a
// browser gets its own session from the manager.
type Service struct {
	cfg      Config
	browser  *browser.Manager
	resolver *resolver.Resolver
	executor *executor.Executor
	store    storage.BlobStorage
	cache    *expirable.LRU[string, *Analysis]
	client   *http.Client
	metrics  *metrics.Metrics
	logger   logger.Logger
	now      func() time.Time
}

// New wires a Service. store may be nil, in which case screenshots are
// returned but not persisted.
func New(cfg Config, bm *browser.Manager, r *resolver.Resolver, ex *executor.Executor, store storage.BlobStorage, m *metrics.Metrics, log logger.Logger) (*Service, error) {
	d := DefaultConfig()
	if cfg.QuickTimeout <= 0 {
		cfg.QuickTimeout = d.QuickTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = d.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = d.CacheTTL
	}
	if cfg.ScreenshotPrefix == "" {
		cfg.ScreenshotPrefix = d.ScreenshotPrefix
	}
	cfg.Screenshot = cfg.Screenshot.orDefaults(d.Screenshot)

	return &Service{
		cfg:      cfg,
		browser:  bm,
		resolver: r,
		executor: ex,
		store:    store,
		cache:    expirable.NewLRU[string, *Analysis](cfg.CacheSize, nil, cfg.CacheTTL),
		client:   &http.Client{Timeout: cfg.QuickTimeout},
		metrics:  m,
		logger:   log.WithField("component", "automation"),
		now:      time.Now,
	}, nil
}

// AnalyzePage returns the screenshot, snapshot and description of rawURL.
// Only ErrInvalidURL is returned as an error; any other failure yields the
// canned fallback snapshot so a chat reply can still be produced.
func (s *Service) AnalyzePage(ctx context.Context, rawURL string) (*Analysis, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	start := s.now()

	if a, ok := s.cached(rawURL); ok {
		s.logger.Debug(ctx, EventAnalysisCached, map[string]interface{}{"url": rawURL})
		return a, nil
	}

	if s.isQuickHost(rawURL) {
		snap, err := s.quickAnalyze(ctx, rawURL)
		if err == nil {
			a := &Analysis{Snapshot: snap, Description: pagedata.Describe(snap)}
			s.remember(rawURL, a)
			s.analysisDone(ctx, rawURL, "quick", start)
			return a, nil
		}
		s.logger.Warn(ctx, EventQuickAnalysis, map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
	}

	shot, err := s.capture(ctx, rawURL, s.cfg.Screenshot)
	if err != nil {
		s.metrics.Action("analyze", false, time.Since(start))
		s.logger.Warn(ctx, EventAnalysisDegraded, map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		snap := pagedata.Fallback(rawURL)
		return &Analysis{Snapshot: snap, Description: pagedata.Describe(snap), Degraded: true}, nil
	}

	a := &Analysis{
		ScreenshotBase64: shot.Base64,
		Snapshot:         shot.Snapshot,
		Description:      pagedata.Describe(shot.Snapshot),
	}
	s.remember(rawURL, a)
	s.analysisDone(ctx, rawURL, "browser", start)
	return a, nil
}

func (s *Service) analysisDone(ctx context.Context, rawURL, mode string, start time.Time) {
	s.metrics.Action("analyze", true, time.Since(start))
	s.logger.Info(ctx, EventAnalysisCompleted, map[string]interface{}{
		"url":         rawURL,
		"mode":        mode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Service) cached(rawURL string) (*Analysis, bool) {
	return s.cache.Get(rawURL)
}

func (s *Service) remember(rawURL string, a *Analysis) {
	s.cache.Add(rawURL, a)
}

func (s *Service) isQuickHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, h := range s.cfg.QuickHosts {
		if strings.EqualFold(u.Host, h) {
			return true
		}
	}
	return false
}

// quickAnalyze fetches the page without a browser and parses the static HTML.
func (s *Service) quickAnalyze(ctx context.Context, rawURL string) (*pagedata.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.browser.Config().UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return pagedata.FromHTML(rawURL, resp.Body)
}

// CaptureScreenshot loads rawURL in a fresh browser and returns a JPEG of it
// along with the extracted snapshot. The image is stored under
// screenshots/screenshot_<unixMillis>.jpg when a store is configured; a
// storage failure is logged and leaves Path empty.
func (s *Service) CaptureScreenshot(ctx context.Context, rawURL string, opts ScreenshotOptions) (*Screenshot, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	start := s.now()
	shot, err := s.capture(ctx, rawURL, opts.orDefaults(s.cfg.Screenshot))
	s.metrics.Action("screenshot", err == nil, time.Since(start))
	return shot, err
}

func (s *Service) capture(ctx context.Context, rawURL string, opts ScreenshotOptions) (*Screenshot, error) {
	var (
		snap *pagedata.Snapshot
		img  []byte
	)
	err := s.browser.WithSession(ctx, rawURL, browser.SessionOptions{Width: opts.Width, Height: opts.Height}, func(sess *browser.Session) error {
		var err error
		snap, err = pagedata.Extract(sess.Page, rawURL)
		if err != nil {
			return fmt.Errorf("extract page data: %w", err)
		}

		quality := opts.Quality
		p := sess.Page.Timeout(sess.Timeouts.Navigation)
		defer p.CancelTimeout()
		img, err = p.Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: &quality,
		})
		if err != nil {
			return fmt.Errorf("capture screenshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	shot := &Screenshot{
		Base64:   base64.StdEncoding.EncodeToString(img),
		Snapshot: snap,
	}
	shot.Path, shot.URL = s.storeScreenshot(ctx, img)
	return shot, nil
}

// storeScreenshot uploads img and returns its key and URL. Failures are
// logged; an unstored image has an empty key.
func (s *Service) storeScreenshot(ctx context.Context, img []byte) (string, string) {
	if s.store == nil {
		return "", ""
	}
	key := path.Join(s.cfg.ScreenshotPrefix, fmt.Sprintf("%s%d.jpg", screenshotNamePrefix, s.now().UnixMilli()))
	if err := s.store.Upload(ctx, key, bytes.NewReader(img)); err != nil {
		s.logger.Warn(ctx, EventScreenshotFailed, map[string]interface{}{
			"path":  key,
			"error": err.Error(),
		})
		return "", ""
	}
	s.logger.Debug(ctx, EventScreenshotStored, map[string]interface{}{
		"path":  key,
		"bytes": len(img),
	})

	link, err := s.store.GetURL(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, EventScreenshotNoURL, map[string]interface{}{
			"path":  key,
			"error": err.Error(),
		})
		return key, ""
	}
	return key, link
}

// OpenScreenshot returns a stored screenshot by its file name, the last
// element of Screenshot.Path. The caller closes the reader.
func (s *Service) OpenScreenshot(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.store == nil || !isScreenshotName(name) {
		return nil, ErrScreenshotNotFound
	}
	rc, err := s.store.Download(ctx, path.Join(s.cfg.ScreenshotPrefix, name))
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, ErrScreenshotNotFound
	}
	return rc, err
}

func isScreenshotName(name string) bool {
	return strings.HasPrefix(name, screenshotNamePrefix) &&
		strings.HasSuffix(name, ".jpg") &&
		!strings.ContainsAny(name, `/\`)
}

// ScreenshotSweeper returns a sweeper that expires screenshots written by
// this service.
func (s *Service) ScreenshotSweeper(maxAge time.Duration) *storage.Sweeper {
	return storage.NewSweeper(s.store, storage.SweeperConfig{
		Prefix:     s.cfg.ScreenshotPrefix,
		NamePrefix: screenshotNamePrefix,
		MaxAge:     maxAge,
	}, s.metrics, s.logger)
}
