package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/venue-scraper/internal/service"
	"github.com/phrazzld/venue-scraper/internal/store"
)

// MapErrorToStatusCode maps service and store errors to HTTP status codes.
// Unknown errors map to 500 so internal details never leak into statuses.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidSourceURL),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrVenueItemExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns an error message safe to expose to API clients
// for the given error. Internal errors get a generic message; the real error
// goes to the logs.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrInvalidSourceURL):
		return "Invalid source URL"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"
	case errors.Is(err, store.ErrVenueItemExists), errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	default:
		return "An internal error occurred"
	}
}
