package domain

import (
	"time"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeEmoji MessageType = "emoji"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
)

// RevokedPlaceholder replaces the content of a revoked message. The row
// stays in history; only the content is rewritten.
const RevokedPlaceholder = "Message revoked"

// Message is one entry in a conversation's history. ID is empty for a
// locally composed message until the server assigns one.
type Message struct {
	ID             string      `json:"id,omitempty"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	SenderName     string      `json:"sender_name,omitempty"`
	SenderAvatar   string      `json:"sender_avatar,omitempty"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	FileName       string      `json:"file_name,omitempty"`
	MimeType       string      `json:"mime_type,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Deleted        bool        `json:"deleted"`
	Pinned         bool        `json:"pinned"`
}

// SentBy reports whether the message was sent by the given viewer.
// This is per-viewer state, never taken from the server.
func (m *Message) SentBy(userID string) bool {
	return m.SenderID == userID
}

// Preview renders the one-line conversation preview for a message.
func (m *Message) Preview() string {
	switch m.Type {
	case MessageTypeImage:
		return "[Image]"
	case MessageTypeVideo:
		return "[Video]"
	case MessageTypeAudio:
		return "[Audio]"
	case MessageTypeFile:
		return "[File]"
	default:
		return m.Content
	}
}

// Revoke rewrites the message in place: placeholder content, text type,
// deleted flag set, pin dropped. The row keeps its slot in history.
func (m *Message) Revoke() {
	m.Content = RevokedPlaceholder
	m.Type = MessageTypeText
	m.Deleted = true
	m.Pinned = false
}
