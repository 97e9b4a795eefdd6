package apitoken

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for API token persistence operations.
type Store interface {
	// Create stores a new token. It fails with ErrMaxTokensReached when
	// MaxActiveTokens are already active.
	Create(ctx context.Context, token *APIToken) error

	GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error)

	// GetByTokenHash retrieves an active, non-expired token by its hash.
	GetByTokenHash(ctx context.Context, hash string) (*APIToken, error)

	// List returns active tokens, newest first.
	List(ctx context.Context) ([]*APIToken, error)

	CountActive(ctx context.Context) (int, error)

	// MarkUsed records the last time a token authenticated a request.
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error

	// Revoke sets a token's is_active to false.
	Revoke(ctx context.Context, id uuid.UUID) error

	// Delete hard-deletes a token.
	Delete(ctx context.Context, id uuid.UUID) error
}
