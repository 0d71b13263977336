package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
)

// TaskStore defines the interface for persisting scrape tasks and driving
// their status transitions. It is the single source of truth for task state:
// the dispatcher and every executor worker coordinate exclusively through the
// atomic compare-and-set transitions exposed here, never through shared
// memory.
type TaskStore interface {
	// Create persists a new task. The task must be in pending status.
	Create(ctx context.Context, task *domain.ScrapeTask) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error)

	// FindEligible returns up to limit dispatchable tasks: status pending and
	// cancellation not requested, oldest first. Each call produces a fresh
	// snapshot; the ordering is a preference, not a delivery guarantee.
	FindEligible(ctx context.Context, limit int) ([]*domain.ScrapeTask, error)

	// Claim atomically transitions a task from pending to processing and
	// returns true iff this caller won the transition. A processing task
	// whose claim is older than the store's configured lease duration may
	// also be re-claimed, so a crashed worker's task becomes eligible again
	// once the broker redelivers its message. Returns false (not an error)
	// when the task is missing, already claimed within the lease, or
	// terminal.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// IsCancelRequested reads the task's cancel flag. The value is a
	// point-in-time snapshot and may be stale by the time the caller acts on
	// it; cancellation is best-effort.
	IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error)

	// RequestCancel sets the task's cancel flag. The flag is monotonic
	// (false to true only) and the call is idempotent. Setting it on a
	// terminal task has no effect.
	// Returns ErrTaskNotFound if the task does not exist.
	RequestCancel(ctx context.Context, id uuid.UUID) error

	// Complete atomically transitions processing to ready, writes the result
	// payload and sets the processed timestamp.
	// Returns ErrInvalidTransition if the task is not processing.
	Complete(ctx context.Context, id uuid.UUID, data *domain.VenueData) error

	// Fail atomically transitions processing to failed, writes the error
	// message and sets the processed timestamp.
	// Returns ErrInvalidTransition if the task is not processing.
	Fail(ctx context.Context, id uuid.UUID, message string) error

	// Cancel atomically transitions a pending or processing task to canceled
	// and sets the processed timestamp. Returns true if this call performed
	// the transition, false if the task was already terminal (idempotent
	// no-op).
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)

	// CancelIfPending transitions the task to canceled only from pending.
	// Used by the cancellation interface to realize the direct
	// pending-to-canceled edge without disturbing a claimed task, whose
	// executor cancels cooperatively at its next checkpoint instead.
	CancelIfPending(ctx context.Context, id uuid.UUID) (bool, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
