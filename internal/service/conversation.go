// Package service provides business logic for the support chat platform.
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

// ConversationService applies the business rules for conversations:
// creation, status/priority transitions, timestamp bookkeeping, and the
// expiry sweep.
type ConversationService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st *store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{store: st, logger: log}
}

// Create creates a new conversation. The customer id is required after
// trimming; priority defaults to normal. Status always starts active
// and lastMessageAt equals createdAt.
func (s *ConversationService) Create(ctx context.Context, req *model.CreateConversationRequest) (*model.Conversation, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return nil, &ValidationError{Reason: "Customer ID required"}
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !priority.Valid() {
		return nil, &ValidationError{Reason: "Invalid priority. Must be one of: critical, high, normal"}
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		CustomerID:    customerID,
		Status:        model.StatusActive,
		Priority:      priority,
		CreatedAt:     now,
		LastMessageAt: now,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("customer_id", conv.CustomerID),
		zap.String("priority", string(conv.Priority)),
	)
	metrics.ConversationsTotal.WithLabelValues(string(conv.Priority)).Inc()

	return conv, nil
}

// Find retrieves a conversation by id.
func (s *ConversationService) Find(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Conversation"}
	}
	return conv, err
}

// ListActive returns active conversations, most recently messaged first.
func (s *ConversationService) ListActive(ctx context.Context) ([]model.Conversation, error) {
	return s.store.ListActiveConversations(ctx)
}

// ListAll returns every conversation, ordered by status rank and then
// recency.
func (s *ConversationService) ListAll(ctx context.Context) ([]model.Conversation, error) {
	return s.store.ListAllConversations(ctx)
}

// SetStatus updates a conversation's status. On a transition to
// resolved, appending the closing message and broadcasting belong to
// the caller; this only performs the column update.
func (s *ConversationService) SetStatus(ctx context.Context, id string, status model.Status) (*model.Conversation, error) {
	if !status.Valid() {
		return nil, &ValidationError{Reason: "Invalid status"}
	}

	conv, err := s.store.UpdateConversationStatus(ctx, id, status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Conversation"}
	}
	return conv, err
}

// SetPriority updates a conversation's priority.
func (s *ConversationService) SetPriority(ctx context.Context, id string, priority model.Priority) (*model.Conversation, error) {
	if !priority.Valid() {
		return nil, &ValidationError{Reason: "Invalid priority. Must be one of: critical, high, normal"}
	}

	conv, err := s.store.UpdateConversationPriority(ctx, id, priority)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Conversation"}
	}
	return conv, err
}

// TouchLastMessage overwrites lastMessageAt with the current time.
// Called once per message creation, in both directions. Last write
// wins.
func (s *ConversationService) TouchLastMessage(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.store.TouchLastMessage(ctx, id, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Conversation"}
	}
	return conv, err
}

// UpdateCustomerInfo overwrites the customer display metadata.
func (s *ConversationService) UpdateCustomerInfo(ctx context.Context, id, name, phone string) (*model.CustomerInfo, error) {
	err := s.store.UpdateCustomerInfo(ctx, id, name, phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Conversation"}
	}
	if err != nil {
		return nil, err
	}
	return &model.CustomerInfo{ID: id, CustomerName: name, CustomerPhone: phone}, nil
}

// ExpireStale resolves every active conversation whose last message is
// strictly older than the given age, and returns the count affected.
// The cutoff is evaluated inside a single statement, so conversations
// receiving a message during the sweep are not expired by it.
func (s *ConversationService) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	count, err := s.store.ExpireStaleConversations(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired stale conversations",
			zap.Int("count", count),
			zap.Duration("older_than", olderThan),
		)
		metrics.ConversationsExpired.Add(float64(count))
	}
	return count, nil
}
