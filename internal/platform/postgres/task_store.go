package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/platform/logger"
	"github.com/phrazzld/venue-scraper/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
// Every status transition is a single conditional UPDATE whose WHERE clause
// encodes the legal source states, so concurrent workers race safely: exactly
// one caller observes an affected row and wins the transition.
type PostgresTaskStore struct {
	db         store.DBTX
	claimLease time.Duration
}

// NewPostgresTaskStore creates a new PostgresTaskStore. claimLease bounds how
// long a processing claim is honored before the task becomes re-claimable; a
// non-positive value falls back to five minutes.
func NewPostgresTaskStore(db store.DBTX, claimLease time.Duration) *PostgresTaskStore {
	if claimLease <= 0 {
		claimLease = 5 * time.Minute
	}
	return &PostgresTaskStore{
		db:         db,
		claimLease: claimLease,
	}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a new TaskStore that uses the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:         tx,
		claimLease: s.claimLease,
	}
}

// Create persists a new task to the database.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.ScrapeTask) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO scrape_tasks
			(id, source_url, status, cancel_requested, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.SourceURL,
		task.Status,
		task.CancelRequested,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create scrape task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a task by its unique ID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error) {
	query := `
		SELECT id, source_url, status, cancel_requested, venue_data,
		       error_message, created_at, updated_at, processed_at
		FROM scrape_tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// FindEligible returns up to limit pending tasks without a cancellation
// request, oldest first.
func (s *PostgresTaskStore) FindEligible(ctx context.Context, limit int) ([]*domain.ScrapeTask, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, source_url, status, cancel_requested, venue_data,
		       error_message, created_at, updated_at, processed_at
		FROM scrape_tasks
		WHERE status = $1 AND cancel_requested = FALSE
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, domain.TaskStatusPending, limit)
	if err != nil {
		log.Error("failed to query eligible tasks", "error", err)
		return nil, fmt.Errorf("failed to query eligible tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.ScrapeTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// Claim atomically transitions a task from pending to processing. A
// processing task whose claim has outlived the lease is also claimable, which
// lets a redelivered message rescue work from a crashed worker.
func (s *PostgresTaskStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()
	staleBefore := now.Add(-s.claimLease)

	query := `
		UPDATE scrape_tasks
		SET status = $1, claimed_at = $2, updated_at = $2
		WHERE id = $3
		  AND (status = $4
		       OR (status = $1 AND claimed_at IS NOT NULL AND claimed_at < $5))
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusProcessing,
		now,
		id,
		domain.TaskStatusPending,
		staleBefore,
	)
	if err != nil {
		log.Error("failed to claim task", "task_id", id, "error", err)
		return false, fmt.Errorf("failed to claim task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// IsCancelRequested reads the task's cancel flag.
func (s *PostgresTaskStore) IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT cancel_requested FROM scrape_tasks WHERE id = $1`

	var requested bool
	err := s.db.QueryRowContext(ctx, query, id).Scan(&requested)
	if err != nil {
		if IsNotFoundError(MapError(err)) {
			return false, store.ErrTaskNotFound
		}
		return false, fmt.Errorf("failed to read cancel flag: %w", err)
	}

	return requested, nil
}

// RequestCancel sets the task's cancel flag. Terminal tasks are left alone.
func (s *PostgresTaskStore) RequestCancel(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE scrape_tasks
		SET cancel_requested = TRUE, updated_at = $1
		WHERE id = $2 AND status IN ($3, $4)
	`

	result, err := s.db.ExecContext(ctx, query,
		time.Now().UTC(),
		id,
		domain.TaskStatusPending,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to request cancellation", "task_id", id, "error", err)
		return fmt.Errorf("failed to request cancellation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the task doesn't exist or it already reached a terminal
		// state. Distinguish the two so callers can report 404 correctly.
		exists, err := s.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrTaskNotFound
		}
	}

	return nil
}

// Complete atomically transitions processing to ready and stores the
// extracted venue data.
func (s *PostgresTaskStore) Complete(ctx context.Context, id uuid.UUID, data *domain.VenueData) error {
	log := logger.FromContext(ctx)

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal venue data: %w", err)
	}

	now := time.Now().UTC()

	query := `
		UPDATE scrape_tasks
		SET status = $1, venue_data = $2, error_message = NULL,
		    processed_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusReady,
		payload,
		now,
		id,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to complete task", "task_id", id, "error", err)
		return fmt.Errorf("failed to complete task: %w", err)
	}

	return s.checkTransition(ctx, result, id, domain.TaskStatusReady)
}

// Fail atomically transitions processing to failed and records the reason.
func (s *PostgresTaskStore) Fail(ctx context.Context, id uuid.UUID, message string) error {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()

	query := `
		UPDATE scrape_tasks
		SET status = $1, error_message = $2, processed_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusFailed,
		message,
		now,
		id,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to mark task failed", "task_id", id, "error", err)
		return fmt.Errorf("failed to mark task failed: %w", err)
	}

	return s.checkTransition(ctx, result, id, domain.TaskStatusFailed)
}

// Cancel atomically transitions a pending or processing task to canceled.
func (s *PostgresTaskStore) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()

	query := `
		UPDATE scrape_tasks
		SET status = $1, processed_at = $2, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusCanceled,
		now,
		id,
		domain.TaskStatusPending,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to cancel task", "task_id", id, "error", err)
		return false, fmt.Errorf("failed to cancel task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := s.exists(ctx, id)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, store.ErrTaskNotFound
		}
		// Already terminal, idempotent no-op.
		return false, nil
	}

	return true, nil
}

// CancelIfPending transitions the task to canceled only from pending. A task
// that has been claimed keeps running until its executor observes the cancel
// flag at the next checkpoint.
func (s *PostgresTaskStore) CancelIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()

	query := `
		UPDATE scrape_tasks
		SET status = $1, processed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusCanceled,
		now,
		id,
		domain.TaskStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel pending task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// checkTransition inspects the result of a conditional status UPDATE and maps
// a zero-row outcome to ErrTaskNotFound or ErrInvalidTransition.
func (s *PostgresTaskStore) checkTransition(
	ctx context.Context,
	result sql.Result,
	id uuid.UUID,
	target domain.TaskStatus,
) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		return nil
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: cannot transition task from %s to %s",
		store.ErrInvalidTransition, current.Status, target)
}

// exists reports whether a task row with the given ID is present.
func (s *PostgresTaskStore) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM scrape_tasks WHERE id = $1)`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return exists, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps a task row onto the domain type.
func scanTask(row rowScanner) (*domain.ScrapeTask, error) {
	var (
		task         domain.ScrapeTask
		venueData    []byte
		errorMessage sql.NullString
		processedAt  sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.SourceURL,
		&task.Status,
		&task.CancelRequested,
		&venueData,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(venueData) > 0 {
		var data domain.VenueData
		if err := json.Unmarshal(venueData, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal venue data: %w", err)
		}
		task.VenueData = &data
	}

	task.ErrorMessage = errorMessage.String
	if processedAt.Valid {
		t := processedAt.Time
		task.ProcessedAt = &t
	}

	return &task, nil
}
