package handler

import (
	"encoding/json"
	"net/http"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/logger"
)

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// respondError writes {"error": message}.
func respondError(w http.ResponseWriter, logger *logger.Logger, status int, message string) {
	respondJSON(w, logger, status, dto.ErrorResponse{Error: message})
}

// allowMethod rejects every method other than the given one with 405.
func allowMethod(w http.ResponseWriter, r *http.Request, logger *logger.Logger, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	respondError(w, logger, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
