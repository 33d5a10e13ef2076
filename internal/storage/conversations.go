// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/model"
	"github.com/gamesage/gamesage-tui/internal/util"
)

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// SaveChat persists a conversation, replacing any previous version. Only
// settled messages are stored; an in-flight streaming message is skipped.
func (s *Store) SaveChat(conv *model.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	created := conv.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = tx.Exec(`
		INSERT INTO chats (id, title, function, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			function = excluded.function,
			updated_at = excluded.updated_at
	`, conv.ID, conv.GetTitle(), string(conv.Function), created.Unix(), now.Unix())
	if err != nil {
		return err
	}

	// Replace the message set wholesale; chats are small and this keeps
	// sequence numbers dense.
	if _, err := tx.Exec("DELETE FROM chat_messages WHERE chat_id = ?", conv.ID); err != nil {
		return err
	}

	seq := 0
	for _, msg := range conv.Messages {
		if msg.IsStreaming || msg.IsEmpty() {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO chat_messages (id, chat_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ID, conv.ID, seq, string(msg.Role), msg.Content, msg.Timestamp.Unix())
		if err != nil {
			return err
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if s.MaxChats > 0 {
		s.enforceChatLimit()
	}
	return nil
}

// enforceChatLimit evicts the oldest chats when over the limit.
func (s *Store) enforceChatLimit() {
	s.db.Exec(`
		DELETE FROM chats WHERE id IN (
			SELECT id FROM chats
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.MaxChats)
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// LoadChat retrieves a conversation by ID.
func (s *Store) LoadChat(id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}

	var function string
	var created, updated int64
	err := s.db.QueryRow(`
		SELECT title, function, created_at, updated_at FROM chats WHERE id = ?
	`, id).Scan(&conv.Title, &function, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	conv.Function = backend.Function(function)
	conv.CreatedAt = time.Unix(created, 0)
	conv.UpdatedAt = time.Unix(updated, 0)

	rows, err := s.db.Query(`
		SELECT id, role, content, created_at
		FROM chat_messages WHERE chat_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role string
		var ts int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts); err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(ts, 0)
		conv.Messages = append(conv.Messages, &msg)
	}
	return conv, rows.Err()
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// ListChats returns metadata for all saved chats, most recent first.
func (s *Store) ListChats() ([]model.ConversationMeta, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.function, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.chat_id = c.id),
		       COALESCE((SELECT m.content FROM chat_messages m
		                 WHERE m.chat_id = c.id AND m.role = 'user'
		                 ORDER BY m.seq LIMIT 1), '')
		FROM chats c
		ORDER BY c.updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []model.ConversationMeta
	for rows.Next() {
		var meta model.ConversationMeta
		var function, preview string
		var created, updated int64
		if err := rows.Scan(&meta.ID, &meta.Title, &function, &created, &updated,
			&meta.MessageCount, &preview); err != nil {
			return nil, err
		}
		meta.Function = backend.Function(function)
		meta.CreatedAt = time.Unix(created, 0)
		meta.UpdatedAt = time.Unix(updated, 0)
		meta.Preview = util.TruncateRunes(util.FirstLine(preview), 80)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// SearchChats finds chats whose title or message content matches the query
// (case-insensitive). An empty query lists everything.
func (s *Store) SearchChats(query string) ([]model.ConversationMeta, error) {
	if query == "" {
		return s.ListChats()
	}

	all, err := s.ListChats()
	if err != nil {
		return nil, err
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var results []model.ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), strings.ToLower(query)) {
			results = append(results, meta)
			continue
		}
		var n int
		err := s.db.QueryRow(`
			SELECT COUNT(*) FROM chat_messages
			WHERE chat_id = ? AND LOWER(content) LIKE ?
		`, meta.ID, pattern).Scan(&n)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			results = append(results, meta)
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// DeleteChat removes a chat by ID.
func (s *Store) DeleteChat(id string) error {
	res, err := s.db.Exec("DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ClearChats removes all saved chats.
func (s *Store) ClearChats() error {
	_, err := s.db.Exec("DELETE FROM chats")
	return err
}

// =============================================================================
// CHAT LIST FORMATTING
// =============================================================================

// FormatChatList formats saved chats as a table for terminal display.
func FormatChatList(metas []model.ConversationMeta) string {
	if len(metas) == 0 {
		return "No saved chats."
	}

	var sb strings.Builder
	sb.WriteString("Saved chats:\n")
	sb.WriteString("------------------------------------------------------------\n")
	fmt.Fprintf(&sb, "%-10s %-17s %-10s %-8s %s\n", "ID", "Updated", "Mode", "Msgs", "Preview")
	sb.WriteString("------------------------------------------------------------\n")

	for _, m := range metas {
		fmt.Fprintf(&sb, "%-10s %-17s %-10s %-8d %s\n",
			util.TruncateRunesNoEllipsis(m.ID, 10),
			m.UpdatedAt.Format("2006-01-02 15:04"),
			util.TruncateRunesNoEllipsis(string(m.Function), 10),
			m.MessageCount,
			util.TruncateRunes(m.Preview, 30))
	}
	return sb.String()
}

// =============================================================================
// CHAT EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown with role labels and
// timestamps.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("Mode: " + string(conv.Function) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		if msg.IsEmpty() {
			continue
		}
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}
