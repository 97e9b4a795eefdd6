// Package apitoken issues operator tokens for the analysis and agent
// management API. Only the SHA-256 of a token is stored.
package apitoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound    = errors.New("api token not found")
	ErrInvalidTokenName = errors.New("token name is required")
	ErrInvalidScope     = errors.New("invalid scope: must be read_only or read_write")
	ErrMissingHash      = errors.New("token hash is required")
	ErrMaxTokensReached = errors.New("maximum number of active tokens reached")
)

const (
	ScopeReadOnly  = "read_only"
	ScopeReadWrite = "read_write"

	// TokenPrefix marks operator tokens so they are recognisable in logs
	// and secret scanners.
	TokenPrefix = "pat_"

	MaxActiveTokens = 20

	DefaultExpiry = 30 * 24 * time.Hour
	MinExpiry     = 24 * time.Hour
	MaxExpiry     = 365 * 24 * time.Hour
)

// APIToken is an operator credential with a scope and an expiry.
type APIToken struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Name       string     `json:"name" gorm:"not null"`
	TokenHash  string     `json:"-" gorm:"type:char(64);not null;uniqueIndex:idx_api_tokens_token_hash"`
	Scope      string     `json:"scope" gorm:"type:varchar(20);not null;default:read_only"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (APIToken) TableName() string {
	return "api_tokens"
}

func (t *APIToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Validate checks the fields required before a token is stored.
func (t *APIToken) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidTokenName
	}
	if !ValidScope(t.Scope) {
		return ErrInvalidScope
	}
	if t.TokenHash == "" {
		return ErrMissingHash
	}
	return nil
}

// IsExpired reports whether the token has passed its expiry.
func (t *APIToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// CanWrite reports whether the token may call mutating endpoints.
func (t *APIToken) CanWrite() bool {
	return t.Scope == ScopeReadWrite
}

func ValidScope(scope string) bool {
	return scope == ScopeReadOnly || scope == ScopeReadWrite
}

// GenerateToken creates a random token with TokenPrefix and returns it
// together with its SHA-256 hash.
func GenerateToken() (rawToken string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	rawToken = TokenPrefix + base64.RawURLEncoding.EncodeToString(bytes)
	return rawToken, HashToken(rawToken), nil
}

// HashToken returns the SHA-256 hex digest of a raw token.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h)
}

// ClampExpiry returns DefaultExpiry for zero and clamps everything else
// into [MinExpiry, MaxExpiry].
func ClampExpiry(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultExpiry
	case d < MinExpiry:
		return MinExpiry
	case d > MaxExpiry:
		return MaxExpiry
	}
	return d
}
