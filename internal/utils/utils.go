// Package utils holds the JSON response helpers shared by all HTTP handlers.
package utils

import (
	"encoding/json"
	"net/http"

	"github.com/arjunmehta/ledger-service/internal/models"
)

// WriteJSON writes data as a JSON body with the given status. A nil data
// value produces a bare status response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	json.NewEncoder(w).Encode(data)
}

// WriteError writes the service's standard error envelope: a short stable
// error label plus an optional human-readable detail message.
func WriteError(w http.ResponseWriter, status int, errorMsg, details string) {
	WriteJSON(w, status, models.ErrorResponse{
		Error:   errorMsg,
		Message: details,
	})
}
