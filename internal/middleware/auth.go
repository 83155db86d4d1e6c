package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"leafdoctor/internal/dto"
)

// AdminTokenHeader carries the admin token on protected requests.
const AdminTokenHeader = "X-Admin-Token"

// AdminOnly sprawdza nagłówek X-Admin-Token. Bez skonfigurowanego tokenu endpoint jest wyłączony.
func AdminOnly(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			deny(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}

		given := r.Header.Get(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			deny(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message})
}
