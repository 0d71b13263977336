package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/extraction"
	"github.com/phrazzld/venue-scraper/internal/scraper"
	"github.com/phrazzld/venue-scraper/internal/store"
)

// ExecutorConfig holds configuration for the executor worker pool.
type ExecutorConfig struct {
	// WorkerCount determines how many concurrent workers consume deliveries.
	WorkerCount int

	// FetchTimeout bounds the page fetch step.
	FetchTimeout time.Duration

	// ExtractTimeout bounds the extraction step, including its retries.
	ExtractTimeout time.Duration
}

// DefaultExecutorConfig returns an ExecutorConfig with reasonable defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		WorkerCount:    2,
		FetchTimeout:   30 * time.Second,
		ExtractTimeout: 120 * time.Second,
	}
}

// Executor runs the scraping pipeline. Workers consume task IDs from the
// broker, claim the task through the store, then fetch the page, extract
// venue data and persist the result. Between the expensive steps each worker
// re-reads the store's cancel flag and stops cooperatively when cancellation
// was requested.
type Executor struct {
	broker    Broker
	taskStore store.TaskStore
	itemStore store.VenueItemStore
	fetcher   scraper.Fetcher
	extractor extraction.Extractor
	logger    *slog.Logger
	config    ExecutorConfig

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewExecutor creates a new Executor.
func NewExecutor(
	broker Broker,
	taskStore store.TaskStore,
	itemStore store.VenueItemStore,
	fetcher scraper.Fetcher,
	extractor extraction.Extractor,
	config ExecutorConfig,
	logger *slog.Logger,
) *Executor {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 30 * time.Second
	}
	if config.ExtractTimeout <= 0 {
		config.ExtractTimeout = 120 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		broker:     broker,
		taskStore:  taskStore,
		itemStore:  itemStore,
		fetcher:    fetcher,
		extractor:  extractor,
		logger:     logger.With(slog.String("component", "executor")),
		config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker pool.
func (e *Executor) Start() {
	for i := 0; i < e.config.WorkerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
}

// Stop signals the workers to finish their current delivery and waits for
// them to exit. In-flight tasks that never reach a terminal state stay
// processing in the store until the claim lease expires.
func (e *Executor) Stop() {
	e.cancelFunc()
	e.wg.Wait()
	e.logger.Info("executor stopped")
}

// worker consumes deliveries until shutdown.
func (e *Executor) worker(id int) {
	defer e.wg.Done()

	logger := e.logger.With(slog.Int("worker_id", id))
	logger.Debug("starting worker")

	for {
		select {
		case <-e.ctx.Done():
			logger.Debug("stopping worker")
			return

		case delivery, ok := <-e.broker.Deliveries():
			if !ok {
				logger.Debug("delivery channel closed, stopping worker")
				return
			}
			e.processDelivery(delivery, logger)
		}
	}
}

// processDelivery handles one delivery end to end. The delivery is
// acknowledged once the task reached a terminal state or turned out to need
// no work; it is deliberately left unacknowledged when a store error
// interrupts the pipeline, so the broker retries after the visibility
// timeout.
func (e *Executor) processDelivery(delivery Delivery, logger *slog.Logger) {
	ctx := e.ctx
	logger = logger.With(
		slog.String("task_id", delivery.TaskID.String()),
		slog.Int("attempt", delivery.Attempt),
	)

	task, err := e.taskStore.GetByID(ctx, delivery.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			// Nothing to redeliver for.
			logger.Warn("delivered task no longer exists")
			delivery.Ack()
			return
		}
		logger.Error("failed to load task", "error", err)
		return
	}

	if task.IsTerminal() {
		logger.Debug("task already terminal", "status", task.Status)
		delivery.Ack()
		return
	}

	won, err := e.taskStore.Claim(ctx, task.ID)
	if err != nil {
		logger.Error("failed to claim task", "error", err)
		return
	}
	if !won {
		// Another worker holds the claim. Its outcome settles the task, and
		// redelivery would only race it again.
		logger.Debug("lost claim race")
		delivery.Ack()
		return
	}

	logger.Info("processing task", "source_url", task.SourceURL)

	if e.runPipeline(ctx, task, logger) {
		delivery.Ack()
	}
}

// runPipeline executes the claimed task through fetch, extraction and
// persistence. Returns true when the task reached a terminal state.
func (e *Executor) runPipeline(ctx context.Context, task *domain.ScrapeTask, logger *slog.Logger) bool {
	// Checkpoint before the fetch.
	if done, ok := e.cancelIfRequested(ctx, task.ID, "before fetch", logger); done || !ok {
		return ok
	}

	fetchCtx, cancelFetch := context.WithTimeout(ctx, e.config.FetchTimeout)
	content, err := e.fetcher.Fetch(fetchCtx, task.SourceURL)
	cancelFetch()
	if err != nil {
		return e.failTask(ctx, task.ID, fmt.Sprintf("fetch failed: %v", err), logger)
	}

	// Checkpoint between fetch and extraction.
	if done, ok := e.cancelIfRequested(ctx, task.ID, "before extraction", logger); done || !ok {
		return ok
	}

	extractCtx, cancelExtract := context.WithTimeout(ctx, e.config.ExtractTimeout)
	data, err := e.extractor.Extract(extractCtx, content)
	cancelExtract()
	if err != nil {
		return e.failTask(ctx, task.ID, fmt.Sprintf("extraction failed: %v", err), logger)
	}

	// Last checkpoint before the result is committed. Past this point the
	// task completes even if cancellation is requested.
	if done, ok := e.cancelIfRequested(ctx, task.ID, "before commit", logger); done || !ok {
		return ok
	}

	if err := e.taskStore.Complete(ctx, task.ID, data); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// The task was canceled or re-claimed underneath us. Whoever
			// moved it owns the outcome.
			logger.Warn("task left processing before completion", "error", err)
			return true
		}
		logger.Error("failed to complete task", "error", err)
		return false
	}

	logger.Info("task completed", "venue_name", data.Name)

	e.createVenueItem(ctx, task, data, logger)
	return true
}

// cancelIfRequested polls the cancel flag at a pipeline checkpoint. The first
// return value reports whether the task was canceled here; the second is
// false when a store error prevented reading or applying the flag, which
// leaves the delivery unacknowledged.
func (e *Executor) cancelIfRequested(
	ctx context.Context,
	id uuid.UUID,
	checkpoint string,
	logger *slog.Logger,
) (bool, bool) {
	requested, err := e.taskStore.IsCancelRequested(ctx, id)
	if err != nil {
		logger.Error("failed to read cancel flag", "checkpoint", checkpoint, "error", err)
		return false, false
	}
	if !requested {
		return false, true
	}

	canceled, err := e.taskStore.Cancel(ctx, id)
	if err != nil {
		logger.Error("failed to cancel task", "checkpoint", checkpoint, "error", err)
		return false, false
	}

	logger.Info("task canceled at checkpoint",
		"checkpoint", checkpoint,
		"transitioned", canceled)
	return true, true
}

// failTask records a pipeline failure. Returns true when the task is settled.
func (e *Executor) failTask(ctx context.Context, id uuid.UUID, message string, logger *slog.Logger) bool {
	logger.Warn("task failed", "reason", message)

	if err := e.taskStore.Fail(ctx, id, message); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			logger.Warn("task left processing before failure was recorded", "error", err)
			return true
		}
		logger.Error("failed to mark task failed", "error", err)
		return false
	}
	return true
}

// createVenueItem writes the downstream catalog row for a completed task.
// This step is best-effort: the task is already ready, and a failure here is
// logged rather than rolled back so extraction results are never discarded.
func (e *Executor) createVenueItem(
	ctx context.Context,
	task *domain.ScrapeTask,
	data *domain.VenueData,
	logger *slog.Logger,
) {
	item, err := domain.NewVenueItem(task.ID, data, task.SourceURL)
	if err != nil {
		logger.Error("failed to build venue item", "error", err)
		return
	}

	if err := e.itemStore.Create(ctx, item); err != nil {
		if errors.Is(err, store.ErrVenueItemExists) {
			// A duplicate delivery already wrote the item.
			logger.Debug("venue item already exists")
			return
		}
		logger.Error("failed to create venue item", "error", err)
		return
	}

	logger.Info("venue item created",
		"venue_item_id", item.ID,
		"venue_name", item.Name)
}
