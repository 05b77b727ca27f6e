package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/notify"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// NotificationHandler triggers operator notifications.
type NotificationHandler struct {
	mailer *notify.Mailer
	logger *logger.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(mailer *notify.Mailer, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{mailer: mailer, logger: log}
}

type newCustomerRequest struct {
	CustomerName   string `json:"customerName"`
	CustomerPhone  string `json:"customerPhone"`
	ConversationID string `json:"conversationId"`
}

// NewCustomer handles POST /api/notifications/new-customer.
func (h *NotificationHandler) NewCustomer(w http.ResponseWriter, r *http.Request) {
	var req newCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.CustomerName == "" || req.CustomerPhone == "" {
		writeError(w, http.StatusBadRequest, "Missing customer information")
		return
	}

	if !h.mailer.Configured() {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Notification skipped (email not configured)",
		})
		return
	}

	if err := h.mailer.NotifyNewCustomer(req.CustomerName, req.CustomerPhone, req.ConversationID); err != nil {
		h.logger.Error("failed to send notification", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to send notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification sent",
	})
}
