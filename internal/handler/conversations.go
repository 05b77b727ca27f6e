// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/relay"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// resolvedMessage is sent to the customer when an operator resolves
// their conversation.
const resolvedMessage = "Thank you for contacting Eliche Radiche. Your request has been resolved. If you need further assistance, please feel free to reach out again."

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	hub           *relay.Hub
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations *service.ConversationService, messages *service.MessageService, hub *relay.Hub, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		hub:           hub,
		logger:        log,
	}
}

// List handles GET /api/conversations: active conversations, most
// recently touched first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.conversations.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}
	writeData(w, http.StatusOK, conversations)
}

// ListAll handles GET /api/conversations/all: every conversation,
// grouped active, waiting, resolved.
func (h *ConversationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.conversations.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list all conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}
	writeData(w, http.StatusOK, conversations)
}

// Get handles GET /api/conversations/{id}: one conversation with its
// full message history.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conversation, err := h.conversations.Find(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch conversation")
		return
	}

	messages, err := h.messages.ListByConversation(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to fetch messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}

	writeData(w, http.StatusOK, model.ConversationWithMessages{
		Conversation: *conversation,
		Messages:     messages,
	})
}

// Create handles POST /api/conversations. Every operator dashboard is
// told about the new conversation via a global broadcast.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Customer ID required")
		return
	}

	conversation, err := h.conversations.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "Failed to create conversation")
		return
	}

	h.hub.BroadcastGlobal(model.EventConversationNew, model.ConversationNewPayload{
		ConversationID: conversation.ID,
		CustomerID:     conversation.CustomerID,
		CustomerName:   conversation.CustomerName,
		CustomerPhone:  conversation.CustomerPhone,
		Priority:       conversation.Priority,
	})

	writeData(w, http.StatusCreated, conversation)
}

// UpdateStatus handles PATCH /api/conversations/{id}/status. Resolving
// a conversation injects a closing message for the customer and then
// announces the status change, in that order, so clients render the
// farewell before the conversation closes.
func (h *ConversationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	conversation, err := h.conversations.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, err, "Failed to update status")
		return
	}

	if req.Status == model.StatusResolved {
		msg, err := h.messages.Create(r.Context(), id, model.SenderOperator, resolvedMessage)
		if err != nil {
			h.logger.Warn("failed to create resolution message",
				zap.String("conversation_id", id),
				zap.Error(err),
			)
		} else {
			h.hub.BroadcastRoom(id, model.EventMessageReceived, model.MessageReceivedPayload{
				Message: *msg,
			})
		}

		h.hub.BroadcastRoom(id, model.EventConversationStatus, model.ConversationStatusPayload{
			ConversationID: id,
			Status:         model.StatusResolved,
		})
	}

	writeData(w, http.StatusOK, conversation)
}

// UpdatePriority handles PATCH /api/conversations/{id}/priority.
func (h *ConversationHandler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdatePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "priority is required and must be a string")
		return
	}

	conversation, err := h.conversations.SetPriority(r.Context(), id, req.Priority)
	if err != nil {
		writeServiceError(w, err, "Failed to update conversation priority")
		return
	}

	writeData(w, http.StatusOK, conversation)
}

// UpdateCustomerInfo handles PATCH /api/conversations/{id}/customer-info.
func (h *ConversationHandler) UpdateCustomerInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateCustomerInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.CustomerName == "" || req.CustomerPhone == "" {
		writeError(w, http.StatusBadRequest, "Name and phone required")
		return
	}

	info, err := h.conversations.UpdateCustomerInfo(r.Context(), id, req.CustomerName, req.CustomerPhone)
	if err != nil {
		writeServiceError(w, err, "Failed to update customer info")
		return
	}

	writeData(w, http.StatusOK, info)
}
