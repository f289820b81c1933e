package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkio/internal/cache"
	"talkio/internal/domain"
)

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "talkio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleConversations() []*domain.Conversation {
	return []*domain.Conversation{
		{
			ID:      "c1",
			Name:    "Alice",
			Members: []domain.Member{{UserID: "u1", Name: "Me"}, {UserID: "u2", Name: "Alice"}},
			Messages: []*domain.Message{
				{ID: "m1", ConversationID: "c1", SenderID: "u2", Content: "hi", Type: domain.MessageTypeText, Timestamp: time.Unix(100, 0).UTC()},
				{ID: "m2", ConversationID: "c1", SenderID: "u1", Content: "hey", Type: domain.MessageTypeText, Timestamp: time.Unix(200, 0).UTC()},
			},
			LastMessage: "hey",
		},
		{
			ID:      "g1",
			Name:    "Team",
			IsGroup: true,
			AdminID: "u1",
			Members: []domain.Member{{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"}},
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveConversations(ctx, sampleConversations()))
	got, err := c.LoadConversations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]*domain.Conversation{got[0].ID: got[0], got[1].ID: got[1]}
	c1 := byID["c1"]
	require.NotNil(t, c1)
	assert.Equal(t, "Alice", c1.Name)
	assert.Len(t, c1.Members, 2)
	require.Len(t, c1.Messages, 2)
	assert.Equal(t, "m1", c1.Messages[0].ID) // timestamp order
	assert.Equal(t, "hey", c1.LastMessage)

	g1 := byID["g1"]
	require.NotNil(t, g1)
	assert.True(t, g1.IsGroup)
	assert.Equal(t, "u1", g1.AdminID)
	assert.Len(t, g1.Members, 3)
}

func TestSaveConversations_ReplacesPreviousMirror(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveConversations(ctx, sampleConversations()))
	require.NoError(t, c.SaveConversations(ctx, sampleConversations()[:1]))

	got, err := c.LoadConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestSaveMessage_UpsertAndPreview(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	require.NoError(t, c.SaveConversations(ctx, sampleConversations()))

	msg := &domain.Message{
		ID: "m3", ConversationID: "c1", SenderID: "u2",
		Content: "data:image/png;base64,...", Type: domain.MessageTypeImage,
		Timestamp: time.Unix(300, 0).UTC(),
	}
	require.NoError(t, c.SaveMessage(ctx, msg))
	require.NoError(t, c.SaveMessage(ctx, msg)) // idempotent upsert

	got, err := c.LoadConversations(ctx)
	require.NoError(t, err)
	for _, conv := range got {
		if conv.ID == "c1" {
			assert.Len(t, conv.Messages, 3)
			assert.Equal(t, "[Image]", conv.LastMessage)
		}
	}

	// Messages without a server ID are never persisted.
	require.NoError(t, c.SaveMessage(ctx, &domain.Message{ConversationID: "c1"}))
	got, _ = c.LoadConversations(ctx)
	for _, conv := range got {
		if conv.ID == "c1" {
			assert.Len(t, conv.Messages, 3)
		}
	}
}

func TestRevokeAndDeleteMessage(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	require.NoError(t, c.SaveConversations(ctx, sampleConversations()))

	require.NoError(t, c.RevokeMessage(ctx, "m1"))
	got, err := c.LoadConversations(ctx)
	require.NoError(t, err)
	for _, conv := range got {
		if conv.ID == "c1" {
			require.Len(t, conv.Messages, 2)
			assert.Equal(t, domain.RevokedPlaceholder, conv.Messages[0].Content)
			assert.True(t, conv.Messages[0].Deleted)
			assert.Equal(t, domain.MessageTypeText, conv.Messages[0].Type)
		}
	}

	require.NoError(t, c.DeleteMessage(ctx, "m1"))
	got, _ = c.LoadConversations(ctx)
	for _, conv := range got {
		if conv.ID == "c1" {
			assert.Len(t, conv.Messages, 1)
		}
	}
}

func TestRemoveConversation_Cascades(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	require.NoError(t, c.SaveConversations(ctx, sampleConversations()))

	require.NoError(t, c.RemoveConversation(ctx, "c1"))
	got, err := c.LoadConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "g1", got[0].ID)
}
