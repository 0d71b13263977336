package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/store"
)

// Common service errors. Service methods return these sentinels for expected
// conditions so the API layer can map them to HTTP status codes with
// errors.Is; unexpected errors are wrapped in TaskServiceError.
var (
	// ErrTaskNotFound indicates that the requested task does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidSourceURL indicates the submitted URL failed validation.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidSourceURL = errors.New("invalid source URL")
)

// TaskServiceError wraps unexpected errors from the task service with
// operation context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g. "create_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError. Known sentinel errors
// pass through unwrapped so callers can keep matching on them.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrInvalidSourceURL) {
		return err
	}

	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	if errors.Is(err, domain.ErrInvalidSourceURL) || errors.Is(err, domain.ErrEmptySourceURL) {
		return fmt.Errorf("%w: %v", ErrInvalidSourceURL, err)
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
