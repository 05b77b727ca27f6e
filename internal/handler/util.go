package handler

import (
	"encoding/json"
	"net/http"

	"github.com/elicheradice/support-platform/internal/service"
)

// dataResponse wraps every successful payload.
type dataResponse struct {
	Data interface{} `json:"data"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData writes a JSON response wrapped in a data envelope.
func writeData(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, dataResponse{Data: v})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service-layer errors onto HTTP statuses.
// fallback is used for everything that is neither a validation nor a
// not-found error, so internal detail never leaks to clients.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case service.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
