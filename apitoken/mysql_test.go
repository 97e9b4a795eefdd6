package apitoken

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLStore_Create(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	token := createTestToken("deploy", ScopeReadWrite, HashToken("a"))
	require.NoError(t, store.Create(ctx, token))
	assert.NotEqual(t, uuid.Nil, token.ID)

	got, err := store.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, "deploy", got.Name)
	assert.Equal(t, ScopeReadWrite, got.Scope)
}

func TestMySQLStore_Create_Invalid(t *testing.T) {
	_, store := setupTestStore(t)

	err := store.Create(context.Background(), createTestToken("", ScopeReadOnly, "h"))
	assert.ErrorIs(t, err, ErrInvalidTokenName)
}

func TestMySQLStore_Create_MaxTokens(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxActiveTokens; i++ {
		require.NoError(t, store.Create(ctx, createTestToken(fmt.Sprintf("t%d", i), ScopeReadOnly, HashToken(fmt.Sprint(i)))))
	}

	err := store.Create(ctx, createTestToken("extra", ScopeReadOnly, HashToken("extra")))
	assert.ErrorIs(t, err, ErrMaxTokensReached)
}

func TestMySQLStore_GetByTokenHash(t *testing.T) {
	db, store := setupTestStore(t)
	ctx := context.Background()

	active := createTestToken("active", ScopeReadOnly, HashToken("active"))
	require.NoError(t, store.Create(ctx, active))

	expired := createTestToken("expired", ScopeReadOnly, HashToken("expired"))
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(expired).Error)

	revoked := createTestToken("revoked", ScopeReadOnly, HashToken("revoked"))
	require.NoError(t, store.Create(ctx, revoked))
	require.NoError(t, store.Revoke(ctx, revoked.ID))

	got, err := store.GetByTokenHash(ctx, HashToken("active"))
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	for _, raw := range []string{"expired", "revoked", "unknown"} {
		_, err := store.GetByTokenHash(ctx, HashToken(raw))
		assert.ErrorIs(t, err, ErrTokenNotFound, raw)
	}
}

func TestMySQLStore_ListAndCount(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, createTestToken(fmt.Sprintf("t%d", i), ScopeReadOnly, HashToken(fmt.Sprint(i)))))
	}
	revoked := createTestToken("revoked", ScopeReadOnly, HashToken("revoked"))
	require.NoError(t, store.Create(ctx, revoked))
	require.NoError(t, store.Revoke(ctx, revoked.ID))

	tokens, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
	for _, tok := range tokens {
		assert.True(t, tok.IsActive)
	}

	count, err := store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMySQLStore_MarkUsed(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	token := createTestToken("ci", ScopeReadOnly, HashToken("ci"))
	require.NoError(t, store.Create(ctx, token))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.MarkUsed(ctx, token.ID, at))

	got, err := store.GetByID(ctx, token.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, got.LastUsedAt.Equal(at))

	assert.ErrorIs(t, store.MarkUsed(ctx, uuid.New(), at), ErrTokenNotFound)
}

func TestMySQLStore_RevokeAndDelete(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	token := createTestToken("ci", ScopeReadOnly, HashToken("ci"))
	require.NoError(t, store.Create(ctx, token))

	require.NoError(t, store.Revoke(ctx, token.ID))
	got, err := store.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, store.Delete(ctx, token.ID))
	_, err = store.GetByID(ctx, token.ID)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.ErrorIs(t, store.Revoke(ctx, uuid.New()), ErrTokenNotFound)
	assert.ErrorIs(t, store.Delete(ctx, uuid.New()), ErrTokenNotFound)
}
