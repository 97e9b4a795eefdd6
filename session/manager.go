package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
)

const tokenName = "pageagent_visitor"

// Manager manages widget visitor sessions with automatic cleanup.
// Visitors hold a signed and encrypted token naming their session.
type Manager struct {
	store    *Store
	duration time.Duration
	codec    *securecookie.SecureCookie
	logger   logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a new session manager. secret keys the token codec.
func NewManager(duration time.Duration, secret string, log logger.Logger) *Manager {
	hashKey := sha256.Sum256([]byte("hash:" + secret))
	blockKey := sha256.Sum256([]byte("block:" + secret))

	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.MaxAge(int(duration / time.Second))

	return &Manager{
		store:    NewStore(),
		duration: duration,
		codec:    codec,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

type tokenPayload struct {
	ID         string
	WidgetCode string
}

// Create starts a session for a visitor of the given widget and returns it
// with the token the widget should send back.
func (m *Manager) Create(widgetCode string) (*Session, string, error) {
	now := time.Now()
	session := &Session{
		ID:         uuid.New(),
		WidgetCode: widgetCode,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.duration),
	}

	token, err := m.codec.Encode(tokenName, tokenPayload{ID: session.ID.String(), WidgetCode: widgetCode})
	if err != nil {
		return nil, "", err
	}

	m.store.Set(session)

	m.logger.Info(context.Background(), "session created", map[string]interface{}{
		"session_id":  session.ID.String(),
		"widget_code": widgetCode,
	})

	cp := *session
	return &cp, token, nil
}

// Resolve verifies a visitor token issued for widgetCode and returns its session.
func (m *Manager) Resolve(widgetCode, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var payload tokenPayload
	if err := m.codec.Decode(tokenName, token, &payload); err != nil {
		return nil, ErrInvalidToken
	}
	if payload.WidgetCode != widgetCode {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return m.store.Get(id)
}

// Continue resolves token or, when it is missing, invalid or expired, starts a
// new session. The returned token is empty when the existing one stays valid.
func (m *Manager) Continue(widgetCode, token string) (*Session, string, error) {
	session, err := m.Resolve(widgetCode, token)
	if err == nil {
		return session, "", nil
	}
	if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
		return nil, "", err
	}
	return m.Create(widgetCode)
}

// Get retrieves a session by ID.
func (m *Manager) Get(sessionID uuid.UUID) (*Session, error) {
	return m.store.Get(sessionID)
}

// Touch records the page the visitor is on and extends the session.
func (m *Manager) Touch(sessionID uuid.UUID, page Page) error {
	return m.store.Touch(sessionID, page, time.Now().Add(m.duration))
}

// Delete deletes a session by ID.
func (m *Manager) Delete(sessionID uuid.UUID) {
	m.store.Delete(sessionID)
	m.logger.Info(context.Background(), "session deleted", map[string]interface{}{
		"session_id": sessionID.String(),
	})
}

// StartCleanup starts a background goroutine that periodically cleans up expired sessions.
func (m *Manager) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				removed := m.store.Cleanup()
				if removed > 0 {
					m.logger.Info(context.Background(), "cleaned up expired sessions", map[string]interface{}{
						"removed_count": removed,
					})
				}
			case <-m.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup goroutine. It is safe to call more than once.
func (m *Manager) StopCleanup() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
