package domain

// Member is a participant of a conversation. Members have no lifecycle
// of their own; they are always owned by a conversation's member list.
type Member struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Conversation is a chat thread, either 1:1 ("private") or multi-party
// ("group"). For a private conversation Name and Avatar are derived from
// the other member and must be recomputed on every membership change.
type Conversation struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar,omitempty"`
	IsGroup     bool       `json:"is_group"`
	AdminID     string     `json:"admin_id,omitempty"`
	Members     []Member   `json:"members"`
	Messages    []*Message `json:"messages,omitempty"`
	LastMessage string     `json:"last_message,omitempty"`
	Unread      int        `json:"unread"`
	Hidden      bool       `json:"hidden"`
	Online      bool       `json:"online"`
}

// OtherMember returns the member whose identity differs from userID.
// Only meaningful for private conversations.
func (c *Conversation) OtherMember(userID string) (Member, bool) {
	for _, m := range c.Members {
		if m.UserID != userID {
			return m, true
		}
	}
	return Member{}, false
}

// DeriveIdentity recomputes a private conversation's display name and
// avatar from the other member. Groups keep their stored values.
func (c *Conversation) DeriveIdentity(userID string) {
	if c.IsGroup {
		return
	}
	if other, ok := c.OtherMember(userID); ok {
		c.Name = other.Name
		c.Avatar = other.Avatar
	}
}

// HasMember reports whether userID is in the member list.
func (c *Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops userID from the member list if present.
func (c *Conversation) RemoveMember(userID string) {
	for i, m := range c.Members {
		if m.UserID == userID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return
		}
	}
}

// FindMessage returns the message with the given ID, or nil.
func (c *Conversation) FindMessage(messageID string) *Message {
	for _, m := range c.Messages {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}
