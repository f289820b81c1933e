// Package cache persists the conversation mirror to a local SQLite
// database so a cold start can render history before the first fetch
// completes. It is a write-behind mirror of the store, not a source of
// truth; the next full fetch always wins.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talkio/internal/domain"

	_ "modernc.org/sqlite"
)

type Cache struct {
	db *sql.DB
}

// Open opens (and migrates) the local cache database.
func Open(dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// migrate runs an idempotent set of CREATE TABLE statements.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			is_group BOOLEAN NOT NULL DEFAULT FALSE,
			admin_id TEXT NOT NULL DEFAULT '',
			last_message TEXT NOT NULL DEFAULT '',
			unread INTEGER NOT NULL DEFAULT 0,
			hidden BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS members (
			conversation_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (conversation_id, user_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			sender_name TEXT NOT NULL DEFAULT '',
			sender_avatar TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'text',
			file_name TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			pinned BOOLEAN NOT NULL DEFAULT FALSE,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate cache: %w", err)
		}
	}
	return nil
}

// SaveConversations replaces the cached mirror with the given list,
// including members and messages, in one transaction.
func (c *Cache) SaveConversations(ctx context.Context, convs []*domain.Conversation) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, tbl := range []string{"messages", "members", "conversations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl); err != nil {
			return fmt.Errorf("clear %s: %w", tbl, err)
		}
	}

	for _, conv := range convs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, name, avatar, is_group, admin_id, last_message, unread, hidden)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			conv.ID, conv.Name, conv.Avatar, conv.IsGroup, conv.AdminID, conv.LastMessage, conv.Unread, conv.Hidden,
		); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		for _, m := range conv.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO members (conversation_id, user_id, name, avatar) VALUES (?, ?, ?, ?)`,
				conv.ID, m.UserID, m.Name, m.Avatar,
			); err != nil {
				return fmt.Errorf("insert member: %w", err)
			}
		}
		for _, msg := range conv.Messages {
			if msg.ID == "" {
				continue // unsent optimistic rows are not persisted
			}
			if err := insertMessage(ctx, tx, msg); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages
		 (id, conversation_id, sender_id, sender_name, sender_avatar, content, type, file_name, mime_type, timestamp, deleted, pinned)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.SenderName, m.SenderAvatar,
		m.Content, string(m.Type), m.FileName, m.MimeType, m.Timestamp, m.Deleted, m.Pinned,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// LoadConversations reads the cached mirror back, messages in
// timestamp order.
func (c *Cache) LoadConversations(ctx context.Context) ([]*domain.Conversation, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, avatar, is_group, admin_id, last_message, unread, hidden FROM conversations`)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.Conversation)
	var out []*domain.Conversation
	for rows.Next() {
		conv := &domain.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.Name, &conv.Avatar, &conv.IsGroup,
			&conv.AdminID, &conv.LastMessage, &conv.Unread, &conv.Hidden); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		byID[conv.ID] = conv
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := c.loadMembers(ctx, byID); err != nil {
		return nil, err
	}
	if err := c.loadMessages(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Cache) loadMembers(ctx context.Context, byID map[string]*domain.Conversation) error {
	rows, err := c.db.QueryContext(ctx, `SELECT conversation_id, user_id, name, avatar FROM members`)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var convID string
		var m domain.Member
		if err := rows.Scan(&convID, &m.UserID, &m.Name, &m.Avatar); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		if conv, ok := byID[convID]; ok {
			conv.Members = append(conv.Members, m)
		}
	}
	return rows.Err()
}

func (c *Cache) loadMessages(ctx context.Context, byID map[string]*domain.Conversation) error {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, sender_name, sender_avatar, content, type,
		        file_name, mime_type, timestamp, deleted, pinned
		 FROM messages ORDER BY timestamp ASC`)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := &domain.Message{}
		var typ string
		var ts time.Time
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.SenderAvatar,
			&m.Content, &typ, &m.FileName, &m.MimeType, &ts, &m.Deleted, &m.Pinned); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		m.Type = domain.MessageType(typ)
		m.Timestamp = ts
		if conv, ok := byID[m.ConversationID]; ok {
			conv.Messages = append(conv.Messages, m)
		}
	}
	return rows.Err()
}

// SaveMessage upserts one message row; the parent conversation row is
// created on demand so an out-of-order push is not lost.
func (c *Cache) SaveMessage(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id) VALUES (?)`, m.ConversationID); err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	if err := insertMessage(ctx, tx, m); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message = ?, hidden = FALSE WHERE id = ?`,
		m.Preview(), m.ConversationID); err != nil {
		return fmt.Errorf("update preview: %w", err)
	}
	return tx.Commit()
}

// DeleteMessage removes a message row entirely.
func (c *Cache) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// RevokeMessage rewrites a cached message the same way the store does.
func (c *Cache) RevokeMessage(ctx context.Context, messageID string) error {
	if _, err := c.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, type = 'text', deleted = TRUE, pinned = FALSE WHERE id = ?`,
		domain.RevokedPlaceholder, messageID); err != nil {
		return fmt.Errorf("revoke message: %w", err)
	}
	return nil
}

// RemoveConversation drops a conversation and, via cascade, its members
// and messages.
func (c *Cache) RemoveConversation(ctx context.Context, conversationID string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return fmt.Errorf("remove conversation: %w", err)
	}
	return nil
}
