package shared

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// DecodeJSON decodes the request body into the provided destination struct.
// Returns true when decoding succeeded. On failure it writes a 400 response
// and returns false, so handlers can simply return.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

// ValidateRequest validates a decoded request struct against its validate
// tags. Writes a 400 response and returns false when validation fails.
func ValidateRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request: "+err.Error())
		return false
	}
	return true
}
