package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/settings"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// SettingsHandler exposes the auto-response toggle.
type SettingsHandler struct {
	settings *settings.Store
	logger   *logger.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(st *settings.Store, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{settings: st, logger: log}
}

type aiSettingBody struct {
	Enabled bool `json:"enabled"`
}

// Get handles GET /api/ai-setting.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aiSettingBody{Enabled: h.settings.Enabled()})
}

// Set handles POST /api/ai-setting. Anything other than a literal true
// disables auto-response.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var body aiSettingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.settings.SetEnabled(body.Enabled); err != nil {
		h.logger.Error("failed to persist ai setting", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save setting")
		return
	}

	writeJSON(w, http.StatusOK, aiSettingBody{Enabled: body.Enabled})
}
