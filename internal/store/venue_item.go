package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
)

// VenueItemStore defines the interface for persisting the venue items
// produced by successful extractions. Items are written once and never
// mutated by this service.
type VenueItemStore interface {
	// Create persists a new venue item.
	// Returns ErrVenueItemExists if an item already exists for the task.
	Create(ctx context.Context, item *domain.VenueItem) error

	// GetByTaskID retrieves the venue item created for the given task.
	// Returns ErrVenueItemNotFound if no item exists.
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.VenueItem, error)

	// WithTx returns a new VenueItemStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) VenueItemStore
}
