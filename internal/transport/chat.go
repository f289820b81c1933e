package transport

import (
	"talkio/internal/domain"
	"talkio/internal/events"
	"talkio/pkg/logger"
)

// ChatChannel is the chat socket namespace: message lifecycle,
// conversation membership and group metadata.
type ChatChannel struct {
	*Channel
}

func NewChatChannel(url string, log *logger.Logger) *ChatChannel {
	return &ChatChannel{Channel: NewChannel(url, log)}
}

// Setup announces the local user identity to the server. Must be
// emitted once after every connect, before any other chat event.
func (c *ChatChannel) Setup(userID string) error {
	return c.Emit(events.EventSetup, events.SetupPayload{UserID: userID})
}

func (c *ChatChannel) JoinRoom(conversationID string) error {
	return c.Emit(events.EventJoinRoom, events.JoinRoomPayload{ConversationID: conversationID})
}

func (c *ChatChannel) SendMessage(msg *domain.Message) error {
	return c.Emit(events.EventSendMessage, msg)
}

func (c *ChatChannel) DeleteMessage(messageID, senderID, conversationID string) error {
	return c.Emit(events.EventDeleteMessage, events.MessageDeletedPayload{
		MessageID:      messageID,
		SenderID:       senderID,
		ConversationID: conversationID,
	})
}

func (c *ChatChannel) RevokeMessage(messageID, senderID, conversationID string) error {
	return c.Emit(events.EventRevokeMessage, events.MessageRevokedPayload{
		MessageID:      messageID,
		SenderID:       senderID,
		ConversationID: conversationID,
	})
}

func (c *ChatChannel) RemoveMember(conversationID, userID string) error {
	return c.Emit(events.EventRemoveMember, events.MemberRemovedPayload{
		ConversationID: conversationID,
		UserID:         userID,
	})
}

func (c *ChatChannel) TransferAdmin(conversationID, newAdminID string) error {
	return c.Emit(events.EventTransferAdmin, events.AdminTransferredPayload{
		ConversationID: conversationID,
		NewAdminID:     newAdminID,
	})
}

func (c *ChatChannel) LeaveGroup(conversationID, userID string) error {
	return c.Emit(events.EventLeaveGroup, events.MemberRemovedPayload{
		ConversationID: conversationID,
		UserID:         userID,
	})
}

func (c *ChatChannel) AddMembersToGroup(conversationID string, members []domain.Member) error {
	return c.Emit(events.EventAddMembersToGroup, events.MemberAddedPayload{
		ConversationID: conversationID,
		NewMembers:     members,
	})
}

func (c *ChatChannel) UpdateGroupAvatar(conversationID, avatar string) error {
	return c.Emit(events.EventUpdateGroupAvatar, events.GroupAvatarPayload{
		ConversationID: conversationID,
		Avatar:         avatar,
	})
}

func (c *ChatChannel) UpdateGroupName(conversationID, name string) error {
	return c.Emit(events.EventUpdateGroupName, events.GroupNamePayload{
		ConversationID: conversationID,
		GroupName:      name,
	})
}

func (c *ChatChannel) CreateGroupConversation(groupName, adminID string, members []domain.Member) error {
	return c.Emit(events.EventCreateGroupConversation, events.CreateGroupPayload{
		GroupName: groupName,
		AdminID:   adminID,
		Members:   members,
	})
}

func (c *ChatChannel) CreatePrivateConversation(members []domain.Member) error {
	return c.Emit(events.EventCreatePrivateConversation, events.CreatePrivatePayload{Members: members})
}
