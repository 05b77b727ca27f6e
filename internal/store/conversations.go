package store

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/elicheradice/support-platform/internal/model"
)

const conversationColumns = `id, customer_id, status, priority, created_at,
	last_message_at, assigned_operator, customer_name, customer_phone`

// CreateConversation inserts a new conversation row.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO conversations
			(id, customer_id, status, priority, created_at, last_message_at,
			 assigned_operator, customer_name, customer_phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				conv.ID,
				conv.CustomerID,
				string(conv.Status),
				string(conv.Priority),
				conv.CreatedAt.UnixMilli(),
				conv.LastMessageAt.UnixMilli(),
				conv.AssignedOperator,
				conv.CustomerName,
				conv.CustomerPhone,
			},
		})
	if err != nil {
		return fmt.Errorf("store: insert conversation: %w", err)
	}
	return nil
}

// GetConversation returns the conversation with the given id, or
// ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	return getConversation(conn, id)
}

func getConversation(conn *sqlite.Conn, id string) (*model.Conversation, error) {
	var conv *model.Conversation
	err := sqlitex.Execute(conn,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				conv = scanConversation(stmt)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrNotFound
	}
	return conv, nil
}

// ListActiveConversations returns all active conversations, most
// recently messaged first.
func (s *Store) ListActiveConversations(ctx context.Context) ([]model.Conversation, error) {
	return s.queryConversations(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE status = 'active'
		ORDER BY last_message_at DESC`)
}

// ListAllConversations returns every conversation ordered by status
// rank (active, waiting, resolved, anything else) and then recency.
func (s *Store) ListAllConversations(ctx context.Context) ([]model.Conversation, error) {
	return s.queryConversations(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		ORDER BY
			CASE status
				WHEN 'active' THEN 1
				WHEN 'waiting' THEN 2
				WHEN 'resolved' THEN 3
				ELSE 4
			END,
			last_message_at DESC`)
}

func (s *Store) queryConversations(ctx context.Context, query string) ([]model.Conversation, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	conversations := []model.Conversation{}
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			conversations = append(conversations, *scanConversation(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	return conversations, nil
}

// UpdateConversationStatus sets the status column and returns the
// updated row, or ErrNotFound if no row matched.
func (s *Store) UpdateConversationStatus(ctx context.Context, id string, status model.Status) (*model.Conversation, error) {
	return s.updateConversation(ctx, id,
		`UPDATE conversations SET status = ? WHERE id = ?`, string(status))
}

// UpdateConversationPriority sets the priority column and returns the
// updated row, or ErrNotFound if no row matched.
func (s *Store) UpdateConversationPriority(ctx context.Context, id string, priority model.Priority) (*model.Conversation, error) {
	return s.updateConversation(ctx, id,
		`UPDATE conversations SET priority = ? WHERE id = ?`, string(priority))
}

// TouchLastMessage overwrites last_message_at with the given time and
// returns the updated row, or ErrNotFound if no row matched.
func (s *Store) TouchLastMessage(ctx context.Context, id string, at time.Time) (*model.Conversation, error) {
	return s.updateConversation(ctx, id,
		`UPDATE conversations SET last_message_at = ? WHERE id = ?`, at.UnixMilli())
}

func (s *Store) updateConversation(ctx context.Context, id, query string, value any) (*model.Conversation, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{value, id},
	})
	if err != nil {
		return nil, fmt.Errorf("store: update conversation: %w", err)
	}
	if conn.Changes() == 0 {
		return nil, ErrNotFound
	}
	return getConversation(conn, id)
}

// UpdateCustomerInfo overwrites customer display metadata, or returns
// ErrNotFound if no row matched.
func (s *Store) UpdateCustomerInfo(ctx context.Context, id, name, phone string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		UPDATE conversations SET customer_name = ?, customer_phone = ?
		WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{name, phone, id}})
	if err != nil {
		return fmt.Errorf("store: update customer info: %w", err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireStaleConversations flips every active conversation whose
// last_message_at is strictly older than the cutoff to resolved, in a
// single statement, and returns the number of rows changed. The filter
// is evaluated at query time, so a conversation touched after the
// cutoff was computed but before the update commits may still be
// expired; this staleness window is accepted.
func (s *Store) ExpireStaleConversations(ctx context.Context, cutoff time.Time) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		UPDATE conversations SET status = 'resolved'
		WHERE status = 'active' AND last_message_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff.UnixMilli()}})
	if err != nil {
		return 0, fmt.Errorf("store: expire conversations: %w", err)
	}
	return conn.Changes(), nil
}

func scanConversation(stmt *sqlite.Stmt) *model.Conversation {
	return &model.Conversation{
		ID:               stmt.ColumnText(0),
		CustomerID:       stmt.ColumnText(1),
		Status:           model.Status(stmt.ColumnText(2)),
		Priority:         model.Priority(stmt.ColumnText(3)),
		CreatedAt:        time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
		LastMessageAt:    time.UnixMilli(stmt.ColumnInt64(5)).UTC(),
		AssignedOperator: stmt.ColumnText(6),
		CustomerName:     stmt.ColumnText(7),
		CustomerPhone:    stmt.ColumnText(8),
	}
}
