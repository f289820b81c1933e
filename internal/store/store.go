package store

import (
	"sync"

	"talkio/internal/domain"
	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"
)

// ConversationStore is the local mirror of every conversation the user
// participates in. Conversations live in a single normalized map keyed
// by ID; the selection is a key into that map, never a cloned copy, so
// a mutation can never leave two diverging copies of one conversation.
//
// All mutations are guarded by one mutex: the websocket read loops and
// the caller's goroutine both touch the store.
type ConversationStore struct {
	mu  sync.RWMutex
	log *logger.Logger

	convs    map[string]*domain.Conversation
	order    []string // conversation IDs, newest first
	selected string   // selected conversation ID, "" when none
	loadErr  bool
}

func NewConversationStore(log *logger.Logger) *ConversationStore {
	return &ConversationStore{
		log:   log,
		convs: make(map[string]*domain.Conversation),
	}
}

// ReplaceAll swaps in a freshly fetched conversation list. Private
// conversations get their display identity derived from the other
// member. The previous selection survives only if the conversation is
// still present. Never partially applies.
func (s *ConversationStore) ReplaceAll(convs []*domain.Conversation, localUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs = make(map[string]*domain.Conversation, len(convs))
	s.order = make([]string, 0, len(convs))
	for _, c := range convs {
		c.DeriveIdentity(localUserID)
		s.convs[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	if _, ok := s.convs[s.selected]; !ok {
		s.selected = ""
	}
	s.loadErr = false
}

// SetLoadError flags a failed full fetch. The previous state is kept.
func (s *ConversationStore) SetLoadError() {
	s.mu.Lock()
	s.loadErr = true
	s.mu.Unlock()
}

func (s *ConversationStore) LoadError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Select makes the conversation with the given ID the current one and
// clears its unread counter.
func (s *ConversationStore) Select(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok {
		return talkio_errors.ErrNotFound
	}
	s.selected = conversationID
	c.Unread = 0
	return nil
}

// ClearSelection drops the selected pointer and with it the visible
// message projection.
func (s *ConversationStore) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// ApplyIncomingMessage merges one pushed (or echoed) message.
// Duplicate IDs are ignored, which makes the echo of a self-sent
// message and a replayed push both harmless. A message for a hidden
// conversation revives it.
func (s *ConversationStore) ApplyIncomingMessage(msg *domain.Message, localUserID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[msg.ConversationID]
	if !ok {
		s.log.Warnf("store: message %s for unknown conversation %s dropped", msg.ID, msg.ConversationID)
		return false
	}
	if msg.ID != "" && c.FindMessage(msg.ID) != nil {
		return false
	}

	c.Messages = append(c.Messages, msg)
	c.LastMessage = msg.Preview()
	if s.selected != c.ID && !msg.SentBy(localUserID) {
		c.Unread++
	}
	if c.Hidden {
		c.Hidden = false
	}
	return true
}

// ApplyConversationCreated prepends a newly announced conversation.
// The creator's client auto-selects it: for a private conversation when
// the first member is the local user, for a group when the admin is.
func (s *ConversationStore) ApplyConversationCreated(c *domain.Conversation, localUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.convs[c.ID]; exists {
		return
	}
	c.DeriveIdentity(localUserID)
	s.convs[c.ID] = c
	s.order = append([]string{c.ID}, s.order...)

	createdByMe := false
	if c.IsGroup {
		createdByMe = c.AdminID == localUserID
	} else if len(c.Members) > 0 {
		createdByMe = c.Members[0].UserID == localUserID
	}
	if createdByMe {
		s.selected = c.ID
		c.Unread = 0
	}
}

// ApplyMemberAdded appends members, skipping any already present, and
// re-derives a private conversation's identity.
func (s *ConversationStore) ApplyMemberAdded(conversationID string, newMembers []domain.Member, localUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return
	}
	for _, m := range newMembers {
		if !c.HasMember(m.UserID) {
			c.Members = append(c.Members, m)
		}
	}
	c.DeriveIdentity(localUserID)
}

// ApplyMemberRemoved handles both a removal and a voluntary leave.
// When the removed member is the local user the whole conversation
// disappears from the mirror; otherwise only the member list shrinks.
func (s *ConversationStore) ApplyMemberRemoved(conversationID, userID, localUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == localUserID {
		s.removeLocked(conversationID)
		return
	}
	c, ok := s.convs[conversationID]
	if !ok {
		return
	}
	c.RemoveMember(userID)
	c.DeriveIdentity(localUserID)
}

func (s *ConversationStore) ApplyAdminTransferred(conversationID, newAdminID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[conversationID]; ok {
		c.AdminID = newAdminID
	}
}

func (s *ConversationStore) ApplyGroupRenamed(conversationID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[conversationID]; ok && c.IsGroup {
		c.Name = name
	}
}

func (s *ConversationStore) ApplyGroupAvatarChanged(conversationID, avatar string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[conversationID]; ok && c.IsGroup {
		c.Avatar = avatar
	}
}

// ApplyMessageRevoked rewrites the message in place. Revoking an
// already-revoked message is a no-op, so the originator's optimistic
// mutation and the server echo take the same path.
func (s *ConversationStore) ApplyMessageRevoked(messageID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return
	}
	m := c.FindMessage(messageID)
	if m == nil || m.Deleted {
		return
	}
	m.Revoke()
	if len(c.Messages) > 0 && c.Messages[len(c.Messages)-1] == m {
		c.LastMessage = m.Preview()
	}
}

// ApplyMessageDeleted removes the message row entirely. Deleting a
// message that is already gone is a no-op.
func (s *ConversationStore) ApplyMessageDeleted(messageID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return
	}
	for i, m := range c.Messages {
		if m.ID == messageID {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			break
		}
	}
	if n := len(c.Messages); n > 0 {
		c.LastMessage = c.Messages[n-1].Preview()
	} else {
		c.LastMessage = ""
	}
}

// SetUnreadToZero clears the unread counter for a conversation.
func (s *ConversationStore) SetUnreadToZero(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[conversationID]; ok {
		c.Unread = 0
	}
}

// MarkHidden soft-deletes a conversation: it stays in the mirror with
// its history cleared, ready to be revived by the next message.
func (s *ConversationStore) MarkHidden(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok {
		return
	}
	c.Hidden = true
	c.Messages = nil
	c.LastMessage = ""
	if s.selected == conversationID {
		s.selected = ""
	}
}

// Remove drops a conversation from the mirror entirely, clearing the
// selection if it pointed there.
func (s *ConversationStore) Remove(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(conversationID)
}

func (s *ConversationStore) removeLocked(conversationID string) {
	if _, ok := s.convs[conversationID]; !ok {
		return
	}
	delete(s.convs, conversationID)
	for i, id := range s.order {
		if id == conversationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == conversationID {
		s.selected = ""
	}
}

// Get returns the conversation with the given ID, or nil.
func (s *ConversationStore) Get(conversationID string) *domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convs[conversationID]
}

// List returns the conversations in display order, newest first.
func (s *ConversationStore) List() []*domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.convs[id])
	}
	return out
}

// Selected returns the selected conversation, or nil when none is.
func (s *ConversationStore) Selected() *domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return nil
	}
	return s.convs[s.selected]
}

// SelectedMessages is the visible message projection: the selected
// conversation's history, or nil when nothing is selected.
func (s *ConversationStore) SelectedMessages() []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return nil
	}
	if c, ok := s.convs[s.selected]; ok {
		return c.Messages
	}
	return nil
}

// Len returns the number of conversations in the mirror.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
