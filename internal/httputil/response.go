package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error payload returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RespondJSON writes a JSON response with the given status code.
// It marshals first so an encoding failure can still become a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorWithDetails(w, status, message, "")
}

// RespondErrorWithDetails writes {"error": message, "details": details}.
// details is omitted when empty.
func RespondErrorWithDetails(w http.ResponseWriter, status int, message, details string) {
	payload, err := json.Marshal(ErrorBody{Error: message, Details: details})
	if err != nil {
		// Fallback to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
