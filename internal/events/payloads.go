package events

import (
	"talkio/internal/domain"
)

// Payload shapes for chat-channel events.

type MessageRevokedPayload struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	ConversationID string `json:"conversation_id"`
}

type MessageDeletedPayload struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	ConversationID string `json:"conversation_id"`
}

type MemberRemovedPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type MemberAddedPayload struct {
	ConversationID string          `json:"conversation_id"`
	NewMembers     []domain.Member `json:"new_members"`
}

type AdminTransferredPayload struct {
	ConversationID string `json:"conversation_id"`
	NewAdminID     string `json:"new_admin_id"`
}

type GroupAvatarPayload struct {
	ConversationID string `json:"conversation_id"`
	Avatar         string `json:"avatar"`
}

type GroupNamePayload struct {
	ConversationID string `json:"conversation_id"`
	GroupName      string `json:"group_name"`
}

type SetupPayload struct {
	UserID string `json:"user_id"`
}

type JoinRoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

type CreateGroupPayload struct {
	GroupName string          `json:"group_name"`
	AdminID   string          `json:"admin_id"`
	Members   []domain.Member `json:"members"`
}

type CreatePrivatePayload struct {
	Members []domain.Member `json:"members"`
}

// Payload shapes for call-channel events.

type CallJoinPayload struct {
	UserID string `json:"user_id"`
}

type IncomingCallPayload struct {
	FromUserID  string `json:"from_user_id"`
	FromName    string `json:"from_name"`
	FromAvatar  string `json:"from_avatar,omitempty"`
	ToUserID    string `json:"to_user_id"`
	Video       bool   `json:"video"`
	IsGroup     bool   `json:"is_group"`
	GroupName   string `json:"group_name,omitempty"`
	GroupAvatar string `json:"group_avatar,omitempty"`
}

type CallAcceptedPayload struct {
	ToUserID   string `json:"to_user_id"`
	FromUserID string `json:"from_user_id"`
}

type DeclineCallPayload struct {
	ToUserID string `json:"to_user_id"`
	FromID   string `json:"from_id"`
	FromName string `json:"from_name"`
}

type CallDeclinedPayload struct {
	FromName string `json:"from_name"`
}

type EndCallPayload struct {
	ToUserID string `json:"to_user_id"`
}
