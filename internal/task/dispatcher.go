package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/venue-scraper/internal/store"
)

// DispatcherConfig holds configuration for the periodic dispatcher.
type DispatcherConfig struct {
	// Interval defines how often the store is scanned for dispatchable tasks.
	Interval time.Duration

	// BatchSize caps how many tasks are published per scan.
	BatchSize int
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable
// defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Interval:  10 * time.Second,
		BatchSize: 10,
	}
}

// Dispatcher periodically scans the store for pending tasks and publishes
// their IDs to the broker. It is the durable safety net behind the immediate
// publish that happens at submission time: a task whose submit-time publish
// was lost, or that sat in a full queue, gets picked up on a later scan.
// Publishing a task twice is safe because workers claim through the store.
type Dispatcher struct {
	taskStore store.TaskStore
	broker    Broker
	logger    *slog.Logger
	config    DispatcherConfig

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	taskStore store.TaskStore,
	broker Broker,
	config DispatcherConfig,
	logger *slog.Logger,
) *Dispatcher {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		taskStore:  taskStore,
		broker:     broker,
		logger:     logger.With(slog.String("component", "dispatcher")),
		config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start begins the periodic scan loop. The first scan runs immediately so
// tasks left pending by a previous run are picked up on startup.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop halts the scan loop and waits for an in-flight scan to finish.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	d.DispatchOnce(d.ctx)

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.DispatchOnce(d.ctx)
		}
	}
}

// DispatchOnce runs a single scan: load up to BatchSize eligible tasks and
// publish each to the broker. Failures are logged and retried on the next
// scan rather than propagated.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	tasks, err := d.taskStore.FindEligible(ctx, d.config.BatchSize)
	if err != nil {
		d.logger.Error("failed to find dispatchable tasks", "error", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	published := 0
	for _, task := range tasks {
		if err := d.broker.Publish(ctx, task.ID); err != nil {
			if errors.Is(err, ErrQueueFull) {
				d.logger.Warn("queue full, deferring remaining tasks to next scan",
					"published", published,
					"remaining", len(tasks)-published)
				return
			}
			d.logger.Error("failed to publish task",
				"task_id", task.ID,
				"error", err)
			continue
		}
		published++
	}

	d.logger.Info("dispatched pending tasks", "count", published)
}
