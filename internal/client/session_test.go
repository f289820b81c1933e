package client

import (
	"encoding/json"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkio/config"
	"talkio/internal/call"
	"talkio/internal/domain"
	"talkio/internal/events"
	"talkio/pkg/logger"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestIdentityFromToken(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"user_id": "u1", "name": "Alice", "avatar": "a.png"})
	u, err := identityFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "u1", Name: "Alice", Avatar: "a.png"}, u)

	// Falls back to the subject claim.
	tok = signedToken(t, jwt.MapClaims{"sub": "u2"})
	u, err = identityFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	_, err = identityFromToken("")
	assert.Error(t, err)

	_, err = identityFromToken(signedToken(t, jwt.MapClaims{"name": "nobody"}))
	assert.Error(t, err)

	_, err = identityFromToken("not-a-token")
	assert.Error(t, err)
}

func testSession(t *testing.T) *Session {
	t.Helper()
	cfg := &config.Config{
		ChatSocketURL:  "ws://127.0.0.1:0/chat",
		CallSocketURL:  "ws://127.0.0.1:0/call",
		APIBaseURL:     "http://127.0.0.1:0",
		RingTimeoutSec: 10,
		StunURL:        "stun:stun.l.google.com:19302",
	}
	s := NewSession(cfg, logger.New(logger.DevelopmentMode), nil, nil)
	s.user = domain.User{ID: "u-local", Name: "Me"}
	s.prompt.SetLocalUser(call.Party{UserID: "u-local", Name: "Me"})
	return s
}

func seedConversation(s *Session) {
	s.store.ReplaceAll([]*domain.Conversation{{
		ID: "c1",
		Members: []domain.Member{
			{UserID: "u-local", Name: "Me"},
			{UserID: "u-other", Name: "Alice"},
		},
	}}, "u-local")
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestHandleReceiveMessage_MergesIntoStore(t *testing.T) {
	s := testSession(t)
	seedConversation(s)

	raw := mustJSON(t, domain.Message{
		ID: "m1", ConversationID: "c1", SenderID: "u-other",
		Content: "hello", Type: domain.MessageTypeText,
	})
	s.handleReceiveMessage(raw)
	s.handleReceiveMessage(raw) // duplicate push is ignored

	c := s.store.Get("c1")
	require.Len(t, c.Messages, 1)
	assert.Equal(t, 1, c.Unread)
	assert.Equal(t, "hello", c.LastMessage)
}

func TestSendMessage_EchoDeduplicatesByID(t *testing.T) {
	s := testSession(t)
	seedConversation(s)

	// The channel is not connected, so the emit fails, but the
	// optimistic apply with a client-assigned ID has happened.
	_, err := s.SendMessage(t.Context(), "c1", "hi", domain.MessageTypeText, "", "", nil)
	assert.Error(t, err)

	c := s.store.Get("c1")
	require.Len(t, c.Messages, 1)
	sent := c.Messages[0]
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, 0, c.Unread)

	// The server echo carries the same ID and is dropped.
	s.handleReceiveMessage(mustJSON(t, sent))
	assert.Len(t, s.store.Get("c1").Messages, 1)
}

func TestHandleRevokeAndDelete(t *testing.T) {
	s := testSession(t)
	seedConversation(s)
	s.handleReceiveMessage(mustJSON(t, domain.Message{
		ID: "m1", ConversationID: "c1", SenderID: "u-other",
		Content: "secret", Type: domain.MessageTypeText,
	}))

	s.handleMessageRevoked(mustJSON(t, events.MessageRevokedPayload{
		MessageID: "m1", SenderID: "u-other", ConversationID: "c1",
	}))
	m := s.store.Get("c1").FindMessage("m1")
	require.NotNil(t, m)
	assert.Equal(t, domain.RevokedPlaceholder, m.Content)

	s.handleMessageDeleted(mustJSON(t, events.MessageDeletedPayload{
		MessageID: "m1", SenderID: "u-other", ConversationID: "c1",
	}))
	assert.Empty(t, s.store.Get("c1").Messages)
}

func TestHandleMemberRemoved_SelfDropsConversation(t *testing.T) {
	s := testSession(t)
	seedConversation(s)

	s.handleMemberRemoved(mustJSON(t, events.MemberRemovedPayload{
		ConversationID: "c1", UserID: "u-local",
	}))
	assert.Nil(t, s.store.Get("c1"))
}

func TestHandleIncomingCall_FiltersByAddressee(t *testing.T) {
	s := testSession(t)

	s.handleIncomingCall(mustJSON(t, events.IncomingCallPayload{
		FromUserID: "u-other", FromName: "Alice", ToUserID: "u-someone-else",
	}))
	assert.False(t, s.prompt.Visible())

	s.handleIncomingCall(mustJSON(t, events.IncomingCallPayload{
		FromUserID: "u-other", FromName: "Alice", ToUserID: "u-local", Video: true,
	}))
	assert.True(t, s.prompt.Visible())
	assert.Equal(t, "u-other", s.prompt.Caller().FromUserID)
}

func TestHandleCallEnded_HidesPromptAndEndsSession(t *testing.T) {
	s := testSession(t)

	s.handleIncomingCall(mustJSON(t, events.IncomingCallPayload{
		FromUserID: "u-other", ToUserID: "u-local",
	}))
	require.True(t, s.prompt.Visible())

	s.handleCallEnded(nil)
	assert.False(t, s.prompt.Visible())
	assert.Equal(t, call.StateIdle, s.ctrl.State())
}

func TestHandleGroupMetadata(t *testing.T) {
	s := testSession(t)
	s.store.ReplaceAll([]*domain.Conversation{{
		ID: "g1", IsGroup: true, Name: "Team", AdminID: "u-other",
		Members: []domain.Member{{UserID: "u-local"}, {UserID: "u-other"}},
	}}, "u-local")

	s.handleGroupName(mustJSON(t, events.GroupNamePayload{ConversationID: "g1", GroupName: "Renamed"}))
	s.handleGroupAvatar(mustJSON(t, events.GroupAvatarPayload{ConversationID: "g1", Avatar: "g.png"}))
	s.handleAdminTransferred(mustJSON(t, events.AdminTransferredPayload{ConversationID: "g1", NewAdminID: "u-local"}))
	s.handleMemberAdded(mustJSON(t, events.MemberAddedPayload{
		ConversationID: "g1",
		NewMembers:     []domain.Member{{UserID: "u-third", Name: "Bob"}},
	}))

	g := s.store.Get("g1")
	assert.Equal(t, "Renamed", g.Name)
	assert.Equal(t, "g.png", g.Avatar)
	assert.Equal(t, "u-local", g.AdminID)
	assert.Len(t, g.Members, 3)
}

func TestNewSession_FallsBackToGlobalLogger(t *testing.T) {
	lg := logger.New(logger.DevelopmentMode)
	logger.SetGlobalLogger(lg)

	s := NewSession(&config.Config{}, nil, nil, nil)
	assert.Same(t, lg, s.log)
}

func TestConnect_RequiresIdentity(t *testing.T) {
	cfg := &config.Config{AccessToken: ""}
	s := NewSession(cfg, logger.New(logger.DevelopmentMode), nil, nil)
	assert.Error(t, s.Connect(t.Context()))
}

func TestConnect_RetryDoesNotStackHandlers(t *testing.T) {
	cfg := &config.Config{
		AccessToken:    signedToken(t, jwt.MapClaims{"user_id": "u1", "name": "Alice"}),
		ChatSocketURL:  "ws://127.0.0.1:1/chat", // nothing listens here
		CallSocketURL:  "ws://127.0.0.1:1/call",
		APIBaseURL:     "http://127.0.0.1:1",
		RingTimeoutSec: 10,
	}
	s := NewSession(cfg, logger.New(logger.DevelopmentMode), nil, nil)

	require.Error(t, s.Connect(t.Context()))
	require.Error(t, s.Connect(t.Context()))

	// A failed dial leaves the registration in place; the retry must
	// replace it, not add a second set.
	assert.Equal(t, 1, s.chat.HandlerCount(events.EventReceiveMessage))
	assert.Equal(t, 1, s.chat.HandlerCount(events.EventNewConversation))
}
