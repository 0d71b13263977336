package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phrazzld/venue-scraper/internal/platform/logger"
	"github.com/phrazzld/venue-scraper/internal/redact"
)

// ErrorResponse is the standard JSON body for API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// RespondWithJSON writes a JSON response with the given status code.
func RespondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already written, nothing left to do but log.
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// RespondWithError writes a standardized JSON error response. The message
// must already be safe for external consumption; internal error details
// belong in logs, not response bodies.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{
		Error:   message,
		TraceID: GetTraceID(r.Context()),
	}
	RespondWithJSON(w, status, resp)
}

// RespondWithErrorAndLog logs the full internal error with redaction applied
// and then sends the safe external message to the client. This keeps the
// details needed for debugging out of API responses.
func RespondWithErrorAndLog(w http.ResponseWriter, r *http.Request, err error, safeMessage string, status int) {
	log := logger.FromContext(r.Context())

	log.Error("request failed",
		"error", redact.Error(err),
		"status", status,
		"path", r.URL.Path,
		"method", r.Method,
		"trace_id", GetTraceID(r.Context()),
	)

	RespondWithError(w, r, status, safeMessage)
}
