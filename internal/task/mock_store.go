package task

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/store"
)

// MemoryTaskStore is an in-memory store.TaskStore with the same
// compare-and-set transition semantics as the PostgreSQL implementation.
// It exists for tests that exercise the pipeline without a database.
type MemoryTaskStore struct {
	mu         sync.Mutex
	tasks      map[uuid.UUID]*domain.ScrapeTask
	claimedAt  map[uuid.UUID]time.Time
	claimLease time.Duration
}

// NewMemoryTaskStore creates an empty MemoryTaskStore with a five minute
// claim lease.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks:      make(map[uuid.UUID]*domain.ScrapeTask),
		claimedAt:  make(map[uuid.UUID]time.Time),
		claimLease: 5 * time.Minute,
	}
}

// Ensure MemoryTaskStore implements store.TaskStore
var _ store.TaskStore = (*MemoryTaskStore)(nil)

// SetClaimLease overrides the claim lease, letting tests exercise stale
// claim reclaim.
func (s *MemoryTaskStore) SetClaimLease(lease time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimLease = lease
}

func (s *MemoryTaskStore) Create(ctx context.Context, task *domain.ScrapeTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}

	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *MemoryTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	copied := *task
	return &copied, nil
}

func (s *MemoryTaskStore) FindEligible(ctx context.Context, limit int) ([]*domain.ScrapeTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []*domain.ScrapeTask
	for _, task := range s.tasks {
		if task.Status == domain.TaskStatusPending && !task.CancelRequested {
			copied := *task
			eligible = append(eligible, &copied)
		}
	}

	// Oldest first.
	for i := 1; i < len(eligible); i++ {
		for j := i; j > 0 && eligible[j].CreatedAt.Before(eligible[j-1].CreatedAt); j-- {
			eligible[j], eligible[j-1] = eligible[j-1], eligible[j]
		}
	}

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *MemoryTaskStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}

	now := time.Now()

	switch task.Status {
	case domain.TaskStatusPending:
	case domain.TaskStatusProcessing:
		claimed, hasClaim := s.claimedAt[id]
		if !hasClaim || now.Sub(claimed) < s.claimLease {
			return false, nil
		}
	default:
		return false, nil
	}

	task.Status = domain.TaskStatusProcessing
	task.UpdatedAt = now
	s.claimedAt[id] = now
	return true, nil
}

func (s *MemoryTaskStore) IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, store.ErrTaskNotFound
	}
	return task.CancelRequested, nil
}

func (s *MemoryTaskStore) RequestCancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.IsTerminal() {
		return nil
	}

	task.CancelRequested = true
	task.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryTaskStore) Complete(ctx context.Context, id uuid.UUID, data *domain.VenueData) error {
	return s.finish(id, domain.TaskStatusReady, func(task *domain.ScrapeTask) {
		task.VenueData = data
		task.ErrorMessage = ""
	})
}

func (s *MemoryTaskStore) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return s.finish(id, domain.TaskStatusFailed, func(task *domain.ScrapeTask) {
		task.ErrorMessage = message
	})
}

// finish applies a processing-to-terminal transition.
func (s *MemoryTaskStore) finish(id uuid.UUID, target domain.TaskStatus, apply func(*domain.ScrapeTask)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.Status != domain.TaskStatusProcessing {
		return fmt.Errorf("%w: cannot transition task from %s to %s",
			store.ErrInvalidTransition, task.Status, target)
	}

	now := time.Now()
	task.Status = target
	task.UpdatedAt = now
	task.ProcessedAt = &now
	apply(task)
	return nil
}

func (s *MemoryTaskStore) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, store.ErrTaskNotFound
	}
	if task.IsTerminal() {
		return false, nil
	}

	now := time.Now()
	task.Status = domain.TaskStatusCanceled
	task.UpdatedAt = now
	task.ProcessedAt = &now
	return true, nil
}

func (s *MemoryTaskStore) CancelIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != domain.TaskStatusPending {
		return false, nil
	}

	now := time.Now()
	task.Status = domain.TaskStatusCanceled
	task.UpdatedAt = now
	task.ProcessedAt = &now
	return true, nil
}

func (s *MemoryTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return s
}

// MemoryVenueItemStore is an in-memory store.VenueItemStore for tests.
type MemoryVenueItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.VenueItem

	// CreateErr, when set, is returned by Create to simulate storage
	// failures.
	CreateErr error
}

// NewMemoryVenueItemStore creates an empty MemoryVenueItemStore.
func NewMemoryVenueItemStore() *MemoryVenueItemStore {
	return &MemoryVenueItemStore{
		items: make(map[uuid.UUID]*domain.VenueItem),
	}
}

// Ensure MemoryVenueItemStore implements store.VenueItemStore
var _ store.VenueItemStore = (*MemoryVenueItemStore)(nil)

func (s *MemoryVenueItemStore) Create(ctx context.Context, item *domain.VenueItem) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.TaskID]; exists {
		return store.ErrVenueItemExists
	}

	copied := *item
	s.items[item.TaskID] = &copied
	return nil
}

func (s *MemoryVenueItemStore) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.VenueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[taskID]
	if !ok {
		return nil, store.ErrVenueItemNotFound
	}

	copied := *item
	return &copied, nil
}

func (s *MemoryVenueItemStore) WithTx(tx *sql.Tx) store.VenueItemStore {
	return s
}
