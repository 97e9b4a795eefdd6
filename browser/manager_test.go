package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	mu          sync.Mutex
	failures    int
	fallbackErr error
	requests    []LaunchRequest
}

func (f *fakeLauncher) Launch(ctx context.Context, req LaunchRequest) (*Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if req.Fallback {
		if f.fallbackErr != nil {
			return nil, f.fallbackErr
		}
		return NewInstance(nil, nil), nil
	}
	if len(f.requests) <= f.failures {
		return nil, fmt.Errorf("launch %d failed", len(f.requests))
	}
	return NewInstance(nil, nil), nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BinPath = "/opt/chrome/chrome"
	cfg.LaunchBackoff = time.Millisecond
	return cfg
}

func TestManager_Launch(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		failures     int
		fallbackErr  error
		wantErr      bool
		wantRequests int
		wantFallback bool
		wantAttempts int
	}{
		{
			name:         "first attempt succeeds",
			url:          "https://example.com",
			wantRequests: 1,
			wantAttempts: 1,
		},
		{
			name:         "succeeds on third attempt",
			url:          "https://example.com",
			failures:     2,
			wantRequests: 3,
			wantAttempts: 3,
		},
		{
			name:         "fallback after three failures",
			url:          "http://localhost:3000",
			failures:     3,
			wantRequests: 4,
			wantFallback: true,
			wantAttempts: 3,
		},
		{
			name:         "fallback also fails",
			url:          "http://localhost:3000",
			failures:     3,
			fallbackErr:  errors.New("no chrome"),
			wantErr:      true,
			wantRequests: 4,
			wantFallback: true,
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger()
			fl := &fakeLauncher{failures: tt.failures, fallbackErr: tt.fallbackErr}
			m := NewManager(testConfig(), fl, nil, log)

			inst, err := m.Launch(context.Background(), tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrLaunchFailed)
				assert.Nil(t, inst)
			} else {
				require.NoError(t, err)
				require.NotNil(t, inst)
				assert.NoError(t, inst.Close())
			}

			require.Len(t, fl.requests, tt.wantRequests)
			assert.Equal(t, tt.wantAttempts, log.Count(EventLaunchAttempt))
			if tt.wantFallback {
				assert.Equal(t, 1, log.Count(EventLaunchFallback))
				last := fl.requests[len(fl.requests)-1]
				assert.True(t, last.Fallback)
				assert.Empty(t, last.BinPath)
				for _, a := range last.Args {
					assert.NotContains(t, a, "remote-debugging-port")
				}
			} else {
				assert.Zero(t, log.Count(EventLaunchFallback))
			}
		})
	}
}

func TestManager_Launch_DevHostArgs(t *testing.T) {
	fl := &fakeLauncher{}
	m := NewManager(testConfig(), fl, nil, logger.NewTestLogger())

	_, err := m.Launch(context.Background(), "http://127.0.0.1:5173/")
	require.NoError(t, err)
	require.Len(t, fl.requests, 1)
	assert.Contains(t, fl.requests[0].Args, "--remote-debugging-port=0")
	assert.Equal(t, "/opt/chrome/chrome", fl.requests[0].BinPath)
	assert.True(t, fl.requests[0].Headless)
}

func TestManager_Launch_CancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.LaunchBackoff = time.Hour
	fl := &fakeLauncher{failures: 10}
	m := NewManager(cfg, fl, nil, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := m.Launch(ctx, "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLaunchFailed)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Len(t, fl.requests, 1)
}

func TestInstance_CloseNil(t *testing.T) {
	var inst *Instance
	assert.NoError(t, inst.Close())

	killed := false
	assert.NoError(t, NewInstance(nil, func() { killed = true }).Close())
	assert.True(t, killed)
}

func TestPause(t *testing.T) {
	assert.NoError(t, Pause(context.Background(), 0))
	assert.NoError(t, Pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pause(ctx, time.Hour), context.Canceled)
}

func liveManager(t *testing.T, log logger.Logger) *Manager {
	bin := testutil.RequireBrowser(t)
	cfg := DefaultConfig()
	cfg.BinPath = bin
	cfg.DevSettle = 0
	cfg.Settle = 0
	cfg.NavigationRetryDelay = 10 * time.Millisecond
	cfg.DevNavigationTimeout = 15 * time.Second
	return NewManager(cfg, nil, nil, log)
}

func TestManager_WithSession_Live(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Live Test</title></head><body><button>Войти</button></body></html>`)
	}))
	defer srv.Close()

	log := logger.NewTestLogger()
	m := liveManager(t, log)

	t.Run("runs fn against loaded page", func(t *testing.T) {
		var title string
		err := m.WithSession(context.Background(), srv.URL, SessionOptions{}, func(s *Session) error {
			info, err := s.Page.Info()
			if err != nil {
				return err
			}
			title = info.Title
			assert.True(t, s.DevHost)
			assert.True(t, strings.HasPrefix(s.URL(), srv.URL))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Live Test", title)
		assert.GreaterOrEqual(t, log.Count(EventSessionClosed), 1)
	})

	t.Run("fn error is returned after teardown", func(t *testing.T) {
		log.Reset()
		sentinel := errors.New("action failed")
		err := m.WithSession(context.Background(), srv.URL, SessionOptions{}, func(s *Session) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, log.Count(EventSessionClosed))
	})

	t.Run("panic is recovered", func(t *testing.T) {
		log.Reset()
		err := m.WithSession(context.Background(), srv.URL, SessionOptions{}, func(s *Session) error {
			panic("element vanished")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "element vanished")
		assert.Equal(t, 1, log.Count(EventSessionRecovered))
		assert.Equal(t, 1, log.Count(EventSessionClosed))
	})
}

func TestManager_WithSession_NavigationFailure_Live(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	log := logger.NewTestLogger()
	m := liveManager(t, log)

	called := false
	err := m.WithSession(context.Background(), deadURL, SessionOptions{}, func(s *Session) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationFailed)
	assert.False(t, called)
	assert.Equal(t, 2, log.Count(EventNavigationFailed))
	assert.Equal(t, 1, log.Count(EventSessionClosed))
}
