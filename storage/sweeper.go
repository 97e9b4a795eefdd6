package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
)

const (
	EventSweepDeleted = "expired screenshots deleted"
	EventSweepFailed  = "screenshot sweep failed"
)

// SweeperConfig selects which objects expire.
type SweeperConfig struct {
	// Prefix is the listing prefix, for example "screenshots/".
	Prefix string
	// NamePrefix restricts deletion to objects whose base name starts with it.
	NamePrefix string
	MaxAge     time.Duration
}

// Sweeper deletes stored screenshots older than MaxAge. A sweep racing an
// upload at the age boundary may keep or drop that one file; it never
// corrupts it.
type Sweeper struct {
	store   BlobStorage
	cfg     SweeperConfig
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewSweeper(store BlobStorage, cfg SweeperConfig, m *metrics.Metrics, log logger.Logger) *Sweeper {
	return &Sweeper{
		store:   store,
		cfg:     cfg,
		metrics: m,
		logger:  log.WithField("component", "sweeper"),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Sweep runs one pass and returns how many objects were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, s.cfg.Prefix)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.cfg.MaxAge)
	deleted := 0
	var errs []error
	for _, obj := range objects {
		if !strings.HasPrefix(path.Base(obj.Path), s.cfg.NamePrefix) {
			continue
		}
		if !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Path); err != nil {
			if errors.Is(err, ErrFileNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		deleted++
	}

	s.metrics.ScreenshotsSwept(deleted)
	return deleted, errors.Join(errs...)
}

// StartCleanup sweeps on every tick until StopCleanup is called.
func (s *Sweeper) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				ctx := context.Background()
				deleted, err := s.Sweep(ctx)
				if err != nil {
					s.logger.Warn(ctx, EventSweepFailed, map[string]interface{}{
						"error":   err.Error(),
						"deleted": deleted,
					})
					continue
				}
				if deleted > 0 {
					s.logger.Info(ctx, EventSweepDeleted, map[string]interface{}{
						"removed_count": deleted,
					})
				}
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup goroutine. It is safe to call more than once.
func (s *Sweeper) StopCleanup() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
