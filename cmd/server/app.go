package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/venue-scraper/internal/config"
	"github.com/phrazzld/venue-scraper/internal/events"
	"github.com/phrazzld/venue-scraper/internal/platform/gemini"
	"github.com/phrazzld/venue-scraper/internal/platform/postgres"
	"github.com/phrazzld/venue-scraper/internal/platform/web"
	"github.com/phrazzld/venue-scraper/internal/service"
	"github.com/phrazzld/venue-scraper/internal/store"
	"github.com/phrazzld/venue-scraper/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore store.TaskStore
	itemStore store.VenueItemStore

	taskService service.TaskService

	eventEmitter events.EventEmitter

	broker     *task.MemoryBroker
	dispatcher *task.Dispatcher
	executor   *task.Executor
}

// newApplication creates a new application instance with all dependencies
// initialized and the background task machinery started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	claimLease := time.Duration(cfg.Task.ClaimLeaseSeconds) * time.Second
	app.taskStore = postgres.NewPostgresTaskStore(db, claimLease)
	app.itemStore = postgres.NewPostgresVenueItemStore(db)

	fetcher := web.NewFetcher(cfg.Scraper, logger.With("component", "fetcher"))

	extractor, err := gemini.NewExtractor(ctx, logger.With("component", "extractor"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM extractor: %w", err)
	}
	logger.Info("LLM extractor initialized", "model", cfg.LLM.ModelName)

	app.broker = task.NewMemoryBroker(task.MemoryBrokerConfig{
		QueueSize:         cfg.Task.QueueSize,
		VisibilityTimeout: time.Duration(cfg.Task.VisibilityTimeoutSeconds) * time.Second,
	}, logger)

	app.executor = task.NewExecutor(
		app.broker,
		app.taskStore,
		app.itemStore,
		fetcher,
		extractor,
		task.ExecutorConfig{
			WorkerCount:    cfg.Task.WorkerCount,
			FetchTimeout:   time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
			ExtractTimeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		},
		logger,
	)

	app.dispatcher = task.NewDispatcher(
		app.taskStore,
		app.broker,
		task.DispatcherConfig{
			Interval:  time.Duration(cfg.Task.DispatchIntervalSeconds) * time.Second,
			BatchSize: cfg.Task.DispatchBatchSize,
		},
		logger,
	)

	// Task creation emits an event; this handler pushes the task straight onto
	// the broker so workers pick it up without waiting for the next dispatch
	// scan. The dispatcher remains the safety net for anything missed.
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewScrapeRequestedHandler(app.broker, logger))
	app.eventEmitter = emitter

	app.taskService, err = service.NewTaskService(app.taskStore, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.broker.Start()
	app.executor.Start()
	app.dispatcher.Start()

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the HTTP server, blocking until shutdown, then cleans up the
// background machinery.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. Order matters:
// the dispatcher stops feeding the broker, workers drain in-flight tasks,
// then the broker and database close.
func (app *application) cleanup() {
	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}
	if app.executor != nil {
		app.executor.Stop()
	}
	if app.broker != nil {
		app.broker.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
	app.logger.Info("application resources released")
}
