package store

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/elicheradice/support-platform/internal/model"
)

const messageColumns = `id, conversation_id, sender, content, timestamp, "read"`

// CreateMessage inserts a new message row. A foreign-key violation
// (unknown conversation) surfaces as ErrNotFound.
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO messages (id, conversation_id, sender, content, timestamp, "read")
		VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				msg.ID,
				msg.ConversationID,
				string(msg.Sender),
				msg.Content,
				msg.Timestamp.UnixMilli(),
				boolToInt(msg.Read),
			},
		})
	if err != nil {
		if sqlite.ErrCode(err) == sqlite.ResultConstraintForeignKey {
			return ErrNotFound
		}
		return fmt.Errorf("store: insert message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in strict ascending
// timestamp order. Messages created in the same millisecond fall back
// to id order, which is creation order for time-sorted UUIDs.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	messages := []model.Message{}
	err = sqlitex.Execute(conn, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC`,
		&sqlitex.ExecOptions{
			Args: []any{conversationID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				messages = append(messages, *scanMessage(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}

// MarkMessageRead sets the read flag and returns the updated row, or
// ErrNotFound if no row matched.
func (s *Store) MarkMessageRead(ctx context.Context, id string) (*model.Message, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE messages SET "read" = 1 WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return nil, fmt.Errorf("store: mark message read: %w", err)
	}
	if conn.Changes() == 0 {
		return nil, ErrNotFound
	}

	var msg *model.Message
	err = sqlitex.Execute(conn,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				msg = scanMessage(stmt)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: get message: %w", err)
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	return msg, nil
}

func scanMessage(stmt *sqlite.Stmt) *model.Message {
	return &model.Message{
		ID:             stmt.ColumnText(0),
		ConversationID: stmt.ColumnText(1),
		Sender:         model.Sender(stmt.ColumnText(2)),
		Content:        stmt.ColumnText(3),
		Timestamp:      time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
		Read:           stmt.ColumnInt64(5) != 0,
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
