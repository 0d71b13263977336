package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/events"
	"github.com/phrazzld/venue-scraper/internal/store"
	"github.com/phrazzld/venue-scraper/internal/task"
)

// TaskService provides scrape-task operations for the transport layer.
type TaskService interface {
	// CreateTask validates the URL, persists a new pending task and requests
	// immediate dispatch.
	CreateTask(ctx context.Context, sourceURL string) (*domain.ScrapeTask, error)

	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error)

	// CancelTask requests cancellation of a task and returns its state after
	// the request took effect. A pending task is canceled on the spot; a
	// processing task keeps running until its executor observes the flag.
	// Canceling a terminal task is a no-op.
	CancelTask(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	taskStore    store.TaskStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewTaskService creates a new TaskService. It returns an error if any of
// the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore:    taskStore,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "task_service"),
	}, nil
}

// CreateTask creates a new pending task and emits a scrape request event so
// processing can start before the next dispatcher scan. A failed emit is not
// fatal: the task is already persisted and the dispatcher will pick it up.
func (s *taskServiceImpl) CreateTask(ctx context.Context, sourceURL string) (*domain.ScrapeTask, error) {
	newTask, err := domain.NewScrapeTask(sourceURL)
	if err != nil {
		s.logger.Warn("rejected task submission",
			"error", err,
			"source_url", sourceURL)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	if err := s.taskStore.Create(ctx, newTask); err != nil {
		s.logger.Error("failed to save task",
			"error", err,
			"task_id", newTask.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.logger.Info("task created",
		"task_id", newTask.ID,
		"source_url", newTask.SourceURL)

	event, err := events.NewTaskRequestEvent(task.TaskTypeScrape, task.ScrapePayload{
		TaskID: newTask.ID.String(),
	})
	if err != nil {
		s.logger.Error("failed to create scrape request event",
			"error", err,
			"task_id", newTask.ID)
		return newTask, nil
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("failed to emit scrape request event, task waits for next scan",
			"error", err,
			"task_id", newTask.ID,
			"event_id", event.ID)
	}

	return newTask, nil
}

// GetTask retrieves a task by its ID.
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error) {
	found, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return found, nil
}

// CancelTask sets the cancel flag and cancels the task outright when it has
// not been claimed yet.
func (s *taskServiceImpl) CancelTask(ctx context.Context, id uuid.UUID) (*domain.ScrapeTask, error) {
	if err := s.taskStore.RequestCancel(ctx, id); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewTaskServiceError("cancel_task", "failed to request cancellation", err)
	}

	canceled, err := s.taskStore.CancelIfPending(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("cancel_task", "failed to cancel pending task", err)
	}

	if canceled {
		s.logger.Info("pending task canceled", "task_id", id)
	} else {
		s.logger.Info("cancellation requested", "task_id", id)
	}

	return s.GetTask(ctx, id)
}
