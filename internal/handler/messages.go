package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	logger        *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(conversations *service.ConversationService, messages *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		messages:      messages,
		logger:        log,
	}
}

// Create handles POST /api/messages. This is the REST path for message
// creation; it persists and touches the conversation but does not
// broadcast, unlike the websocket path.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "conversationId is required and must be a non-empty string")
		return
	}

	msg, err := h.messages.Create(r.Context(), req.ConversationID, req.Sender, req.Content)
	if err != nil {
		writeServiceError(w, err, "Failed to create message")
		return
	}

	if _, err := h.conversations.TouchLastMessage(r.Context(), msg.ConversationID); err != nil {
		h.logger.Warn("failed to touch conversation",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err),
		)
	}

	writeData(w, http.StatusCreated, msg)
}

// List handles GET /api/messages?conversationId={id}.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversationId"))
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversationId query parameter is required")
		return
	}

	// Distinguish an unknown conversation from one with no messages.
	if _, err := h.conversations.Find(r.Context(), conversationID); err != nil {
		writeServiceError(w, err, "Failed to fetch messages")
		return
	}

	messages, err := h.messages.ListByConversation(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	writeData(w, http.StatusOK, messages)
}

// MarkRead handles PATCH /api/messages/{id}/read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := h.messages.MarkRead(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to mark message as read")
		return
	}

	writeData(w, http.StatusOK, msg)
}
