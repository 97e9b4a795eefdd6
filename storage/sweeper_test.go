package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, base string, store *LocalStorage, p string, modTime time.Time) {
	t.Helper()
	require.NoError(t, store.Upload(context.Background(), p, strings.NewReader("jpeg")))
	require.NoError(t, os.Chtimes(filepath.Join(base, filepath.FromSlash(p)), modTime, modTime))
}

func TestSweeper_Sweep(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeAged(t, base, store, "screenshots/screenshot_old.jpg", now.Add(-25*time.Hour))
	writeAged(t, base, store, "screenshots/screenshot_fresh.jpg", now.Add(-time.Hour))
	writeAged(t, base, store, "screenshots/keep_old.jpg", now.Add(-48*time.Hour))
	writeAged(t, base, store, "other/screenshot_old.jpg", now.Add(-48*time.Hour))

	s := NewSweeper(store, SweeperConfig{Prefix: "screenshots/", NamePrefix: "screenshot_", MaxAge: 24 * time.Hour}, nil, logger.NewTestLogger())
	s.now = func() time.Time { return now }

	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	remaining, err := store.List(context.Background(), "")
	require.NoError(t, err)
	paths := make([]string, 0, len(remaining))
	for _, o := range remaining {
		paths = append(paths, o.Path)
	}
	assert.ElementsMatch(t, []string{
		"screenshots/screenshot_fresh.jpg",
		"screenshots/keep_old.jpg",
		"other/screenshot_old.jpg",
	}, paths)
}

type failingStore struct {
	BlobStorage
	objects   []ObjectInfo
	listErr   error
	deleteErr error
}

func (f *failingStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	return f.objects, f.listErr
}

func (f *failingStore) Delete(ctx context.Context, path string) error {
	return f.deleteErr
}

func TestSweeper_Errors(t *testing.T) {
	old := time.Now().Add(-72 * time.Hour)
	cfg := SweeperConfig{Prefix: "screenshots/", NamePrefix: "screenshot_", MaxAge: time.Hour}

	t.Run("list error", func(t *testing.T) {
		boom := errors.New("list failed")
		s := NewSweeper(&failingStore{listErr: boom}, cfg, nil, logger.NewTestLogger())
		_, err := s.Sweep(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("already deleted is ignored", func(t *testing.T) {
		store := &failingStore{
			objects:   []ObjectInfo{{Path: "screenshots/screenshot_1.jpg", ModTime: old}},
			deleteErr: ErrFileNotFound,
		}
		s := NewSweeper(store, cfg, nil, logger.NewTestLogger())
		deleted, err := s.Sweep(context.Background())
		assert.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("delete errors are joined", func(t *testing.T) {
		boom := errors.New("denied")
		store := &failingStore{
			objects:   []ObjectInfo{{Path: "screenshots/screenshot_1.jpg", ModTime: old}, {Path: "screenshots/screenshot_2.jpg", ModTime: old}},
			deleteErr: boom,
		}
		s := NewSweeper(store, cfg, nil, logger.NewTestLogger())
		deleted, err := s.Sweep(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, deleted)
	})
}

func TestSweeper_StartStopCleanup(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)
	writeAged(t, base, store, "screenshots/screenshot_old.jpg", time.Now().Add(-48*time.Hour))

	log := logger.NewTestLogger()
	s := NewSweeper(store, SweeperConfig{Prefix: "screenshots/", NamePrefix: "screenshot_", MaxAge: time.Hour}, nil, log)
	s.StartCleanup(10 * time.Millisecond)
	defer s.StopCleanup()

	assert.Eventually(t, func() bool {
		return log.Count(EventSweepDeleted) > 0
	}, 2*time.Second, 10*time.Millisecond)

	exists, err := store.Exists(context.Background(), "screenshots/screenshot_old.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	s.StopCleanup()
}
