package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLStore_Create(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("generates id and widget code", func(t *testing.T) {
		agent := createTestAgent("Shop", "")
		require.NoError(t, store.Create(ctx, agent))
		assert.NotEqual(t, uuid.Nil, agent.ID)
		assert.Len(t, agent.WidgetCode, 8)
		assert.Equal(t, StyleHelpful, agent.ResponseStyle)
		assert.NotZero(t, agent.CreatedAt)
	})

	t.Run("keeps supplied widget code", func(t *testing.T) {
		agent := createTestAgent("Shop", "shop-main")
		require.NoError(t, store.Create(ctx, agent))
		assert.Equal(t, "shop-main", agent.WidgetCode)
	})

	t.Run("duplicate widget code returns error", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, createTestAgent("First", "taken")))
		err := store.Create(ctx, createTestAgent("Second", "taken"))
		assert.ErrorIs(t, err, ErrDuplicateWidgetCode)
	})

	t.Run("invalid agent returns error", func(t *testing.T) {
		err := store.Create(ctx, &Agent{Description: "no name"})
		assert.ErrorIs(t, err, ErrInvalidAgentName)
	})
}

func TestMySQLStore_GetByWidgetCode(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("retrieve active agent", func(t *testing.T) {
		agent := createTestAgent("Shop", "lookup")
		require.NoError(t, store.Create(ctx, agent))

		retrieved, err := store.GetByWidgetCode(ctx, "lookup")
		require.NoError(t, err)
		assert.Equal(t, agent.ID, retrieved.ID)
		assert.Equal(t, agent.KnowledgeBase, retrieved.KnowledgeBase)
	})

	t.Run("inactive agent not found", func(t *testing.T) {
		agent := createTestAgent("Paused", "paused")
		require.NoError(t, store.Create(ctx, agent))
		require.NoError(t, store.Update(ctx, agent.ID, SetActive(false)))

		_, err := store.GetByWidgetCode(ctx, "paused")
		assert.ErrorIs(t, err, ErrAgentNotFound)

		retrieved, err := store.GetByID(ctx, agent.ID)
		require.NoError(t, err)
		assert.False(t, retrieved.IsActive)
	})

	t.Run("unknown code returns error", func(t *testing.T) {
		_, err := store.GetByWidgetCode(ctx, "missing")
		assert.ErrorIs(t, err, ErrAgentNotFound)
	})

	t.Run("malformed code returns error", func(t *testing.T) {
		_, err := store.GetByWidgetCode(ctx, "DROP TABLE")
		assert.ErrorIs(t, err, ErrInvalidWidgetCode)
	})
}

func TestMySQLStore_Update(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("update multiple fields", func(t *testing.T) {
		agent := createTestAgent("Original", "")
		require.NoError(t, store.Create(ctx, agent))

		err := store.Update(ctx, agent.ID,
			SetName("Renamed"),
			SetSystemPrompt("Отвечай кратко"),
			SetResponseStyle(StyleTechnical),
			SetWebsiteURL("https://shop.example"),
		)
		require.NoError(t, err)

		retrieved, err := store.GetByID(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", retrieved.Name)
		assert.Equal(t, "Отвечай кратко", retrieved.SystemPrompt)
		assert.Equal(t, StyleTechnical, retrieved.ResponseStyle)
		assert.Equal(t, "https://shop.example", retrieved.WebsiteURL)
		assert.Equal(t, agent.WidgetCode, retrieved.WidgetCode)
	})

	t.Run("invalid setter aborts update", func(t *testing.T) {
		agent := createTestAgent("Stable", "")
		require.NoError(t, store.Create(ctx, agent))

		err := store.Update(ctx, agent.ID, SetName("Changed"), SetResponseStyle("loud"))
		assert.ErrorIs(t, err, ErrInvalidResponseStyle)

		retrieved, err := store.GetByID(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, "Stable", retrieved.Name)
	})

	t.Run("update non-existent agent returns error", func(t *testing.T) {
		err := store.Update(ctx, uuid.New(), SetName("x"))
		assert.ErrorIs(t, err, ErrAgentNotFound)
	})
}

func TestMySQLStore_Delete(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	agent := createTestAgent("To Delete", "")
	require.NoError(t, store.Create(ctx, agent))
	require.NoError(t, store.Delete(ctx, agent.ID))

	_, err := store.GetByID(ctx, agent.ID)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	err = store.Delete(ctx, agent.ID)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestMySQLStore_ListAndCount(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, createTestAgent("Agent "+string(rune('A'+i)), "")))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}

func TestMySQLStore_IncrementMessages(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	agent := createTestAgent("Counter", "")
	require.NoError(t, store.Create(ctx, agent))

	require.NoError(t, store.IncrementMessages(ctx, agent.ID, 2))
	require.NoError(t, store.IncrementMessages(ctx, agent.ID, 2))

	retrieved, err := store.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), retrieved.TotalMessages)

	err = store.IncrementMessages(ctx, uuid.New(), 2)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}
