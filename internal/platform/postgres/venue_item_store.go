package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/platform/logger"
	"github.com/phrazzld/venue-scraper/internal/store"
)

// PostgresVenueItemStore implements the store.VenueItemStore interface using
// PostgreSQL. Venue items are write-once rows keyed by task, enforced by a
// unique constraint on task_id.
type PostgresVenueItemStore struct {
	db store.DBTX
}

// NewPostgresVenueItemStore creates a new PostgresVenueItemStore.
func NewPostgresVenueItemStore(db store.DBTX) *PostgresVenueItemStore {
	return &PostgresVenueItemStore{
		db: db,
	}
}

// Ensure PostgresVenueItemStore implements store.VenueItemStore
var _ store.VenueItemStore = (*PostgresVenueItemStore)(nil)

// WithTx returns a new VenueItemStore that uses the provided transaction.
func (s *PostgresVenueItemStore) WithTx(tx *sql.Tx) store.VenueItemStore {
	return &PostgresVenueItemStore{
		db: tx,
	}
}

// Create persists a new venue item.
func (s *PostgresVenueItemStore) Create(ctx context.Context, item *domain.VenueItem) error {
	log := logger.FromContext(ctx)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	venueData, err := json.Marshal(item.VenueData)
	if err != nil {
		return fmt.Errorf("failed to marshal venue data: %w", err)
	}

	images, err := json.Marshal(item.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	spaces, err := json.Marshal(item.SpacesAvailable)
	if err != nil {
		return fmt.Errorf("failed to marshal spaces: %w", err)
	}

	query := `
		INSERT INTO venue_items
			(id, task_id, name, address, price, notes, category, images,
			 rating, spaces_available, link, venue_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.db.ExecContext(ctx, query,
		item.ID,
		item.TaskID,
		item.Name,
		item.Address,
		item.Price,
		item.Notes,
		item.Category,
		images,
		item.Rating,
		spaces,
		item.Link,
		venueData,
		item.CreatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("venue item already exists for task",
				"task_id", item.TaskID)
			return MapUniqueViolation(err, "venue item", "", store.ErrVenueItemExists)
		}
		log.Error("failed to create venue item",
			"task_id", item.TaskID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByTaskID retrieves the venue item created for the given task.
func (s *PostgresVenueItemStore) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.VenueItem, error) {
	query := `
		SELECT id, task_id, name, address, price, notes, category, images,
		       rating, spaces_available, link, venue_data, created_at
		FROM venue_items
		WHERE task_id = $1
	`

	var (
		item      domain.VenueItem
		price     sql.NullFloat64
		images    []byte
		spaces    []byte
		venueData []byte
	)

	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&item.ID,
		&item.TaskID,
		&item.Name,
		&item.Address,
		&price,
		&item.Notes,
		&item.Category,
		&images,
		&item.Rating,
		&spaces,
		&item.Link,
		&venueData,
		&item.CreatedAt,
	)
	if err != nil {
		if IsNotFoundError(MapError(err)) {
			return nil, store.ErrVenueItemNotFound
		}
		return nil, fmt.Errorf("failed to get venue item: %w", err)
	}

	if price.Valid {
		v := price.Float64
		item.Price = &v
	}
	if err := json.Unmarshal(images, &item.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	if err := json.Unmarshal(spaces, &item.SpacesAvailable); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spaces: %w", err)
	}
	if len(venueData) > 0 {
		var data domain.VenueData
		if err := json.Unmarshal(venueData, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal venue data: %w", err)
		}
		item.VenueData = &data
	}

	return &item, nil
}
