package domain

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a scrape task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusReady      TaskStatus = "ready"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCanceled   TaskStatus = "canceled"
)

// Common validation errors for ScrapeTask
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptySourceURL   = errors.New("task source URL cannot be empty")
	ErrInvalidSourceURL = errors.New("task source URL is not a valid URL")
	ErrInvalidStatus    = errors.New("invalid task status")
)

// ScrapeTask represents a single venue-scraping job tracked through the
// state machine. It is the durable unit of work: created pending by the
// submission interface, claimed by exactly one executor, and driven to one
// of the terminal states (ready, failed, canceled).
type ScrapeTask struct {
	ID              uuid.UUID  `json:"id"`
	SourceURL       string     `json:"source_url"`
	Status          TaskStatus `json:"status"`
	CancelRequested bool       `json:"cancel_requested"`
	VenueData       *VenueData `json:"venue_data,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

// NewScrapeTask creates a new ScrapeTask for the given source URL.
// It generates a new UUID, sets the status to pending, and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewScrapeTask(sourceURL string) (*ScrapeTask, error) {
	task := &ScrapeTask{
		ID:        uuid.New(),
		SourceURL: sourceURL,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the ScrapeTask has valid data.
// Returns an error if any field fails validation.
func (t *ScrapeTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.SourceURL == "" {
		return ErrEmptySourceURL
	}

	if u, err := url.Parse(t.SourceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidSourceURL
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidStatus
	}

	return nil
}

// IsTerminal reports whether the task has reached a terminal state.
// No transitions are permitted out of a terminal state.
func (t *ScrapeTask) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// IsTerminal reports whether the status is one of the terminal states.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusReady, TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from the current status to the
// target status follows a legal edge of the state machine:
//
//	pending -> processing | canceled
//	processing -> ready | failed | canceled
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return target == TaskStatusProcessing || target == TaskStatusCanceled
	case TaskStatusProcessing:
		return target == TaskStatusReady || target == TaskStatusFailed ||
			target == TaskStatusCanceled
	default:
		return false
	}
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusReady,
		TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}
