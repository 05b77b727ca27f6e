package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/store"
	"github.com/elicheradice/support-platform/pkg/logger"
	"github.com/elicheradice/support-platform/pkg/metrics"
)

// MessageService applies the business rules for messages.
type MessageService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(st *store.Store, log *logger.Logger) *MessageService {
	return &MessageService{store: st, logger: log}
}

// Create appends a message to a conversation. The timestamp is always
// generated server-side and read starts false. An unknown conversation
// yields a NotFoundError; nothing is persisted in that case.
func (s *MessageService) Create(ctx context.Context, conversationID string, sender model.Sender, content string) (*model.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, &ValidationError{Reason: "conversationId is required and must be a non-empty string"}
	}
	if !sender.Valid() {
		return nil, &ValidationError{Reason: "Invalid sender. Must be one of: customer, operator"}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Reason: "content is required and must be a non-empty string"}
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Read:           false,
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "Conversation"}
		}
		return nil, err
	}

	s.logger.Debug("message created",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
		zap.String("sender", string(msg.Sender)),
	)
	metrics.MessagesTotal.WithLabelValues(string(msg.Sender)).Inc()

	return msg, nil
}

// ListByConversation returns a conversation's messages in ascending
// timestamp order.
func (s *MessageService) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// MarkRead flags a message as read.
func (s *MessageService) MarkRead(ctx context.Context, id string) (*model.Message, error) {
	msg, err := s.store.MarkMessageRead(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Message"}
	}
	return msg, err
}
