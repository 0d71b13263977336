package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBrokerConfig holds configuration for the in-memory broker.
type MemoryBrokerConfig struct {
	// QueueSize determines the buffer size for the backlog of published
	// messages.
	QueueSize int

	// VisibilityTimeout defines how long a delivered message stays invisible
	// before it is delivered again without an acknowledgment.
	VisibilityTimeout time.Duration

	// SweepInterval defines how often unacknowledged deliveries are checked
	// against the visibility timeout. If zero, defaults to 30 seconds.
	SweepInterval time.Duration
}

// DefaultMemoryBrokerConfig returns a MemoryBrokerConfig with reasonable
// defaults.
func DefaultMemoryBrokerConfig() MemoryBrokerConfig {
	return MemoryBrokerConfig{
		QueueSize:         100,
		VisibilityTimeout: 5 * time.Minute,
		SweepInterval:     30 * time.Second,
	}
}

// message is the broker's internal record of one published task ID.
type message struct {
	id          uuid.UUID
	taskID      uuid.UUID
	attempt     int
	deliveredAt time.Time
}

// MemoryBroker is an in-process Broker with a bounded backlog and
// visibility-timeout redelivery. A published message is handed to exactly one
// worker at a time; if that worker never acknowledges it, the sweeper
// re-enqueues it after the visibility timeout. Acknowledged messages are
// dropped. Messages do not survive process restarts, which is why the
// dispatcher periodically re-publishes anything still pending in the store.
type MemoryBroker struct {
	queue      chan *message
	deliveries chan Delivery
	logger     *slog.Logger
	config     MemoryBrokerConfig

	mu      sync.Mutex
	pending map[uuid.UUID]*message
	closed  bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewMemoryBroker creates a new MemoryBroker.
func NewMemoryBroker(config MemoryBrokerConfig, logger *slog.Logger) *MemoryBroker {
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 5 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MemoryBroker{
		queue:      make(chan *message, config.QueueSize),
		deliveries: make(chan Delivery),
		logger:     logger.With(slog.String("component", "memory_broker")),
		config:     config,
		pending:    make(map[uuid.UUID]*message),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Ensure MemoryBroker implements Broker
var _ Broker = (*MemoryBroker)(nil)

// Start launches the delivery and sweeper goroutines.
func (b *MemoryBroker) Start() {
	b.wg.Add(2)
	go b.deliverLoop()
	go b.sweepLoop()
}

// Stop shuts the broker down. Queued and unacknowledged messages are
// discarded; the dispatcher re-publishes them from the store on the next
// start.
func (b *MemoryBroker) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.cancelFunc()
	b.wg.Wait()
	close(b.deliveries)

	b.logger.Info("broker stopped")
}

// Publish enqueues a task ID for delivery.
func (b *MemoryBroker) Publish(ctx context.Context, taskID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrQueueClosed
	}

	msg := &message{
		id:     uuid.New(),
		taskID: taskID,
	}

	select {
	case b.queue <- msg:
		b.logger.Debug("task published",
			"task_id", taskID,
			"queue_len", len(b.queue),
			"queue_cap", cap(b.queue))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(b.queue))
	}
}

// Deliveries returns the channel workers receive messages on.
func (b *MemoryBroker) Deliveries() <-chan Delivery {
	return b.deliveries
}

// deliverLoop moves messages from the backlog to workers, tracking each
// hand-off so the sweeper can redeliver it if no acknowledgment arrives.
func (b *MemoryBroker) deliverLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-b.queue:
			if !ok {
				return
			}

			msg.attempt++
			msgID := msg.id

			b.mu.Lock()
			msg.deliveredAt = time.Now()
			b.pending[msgID] = msg
			b.mu.Unlock()

			delivery := Delivery{
				TaskID:  msg.taskID,
				Attempt: msg.attempt,
				ack:     func() { b.ackMessage(msgID) },
			}

			select {
			case b.deliveries <- delivery:
			case <-b.ctx.Done():
				return
			}
		}
	}
}

// ackMessage drops an acknowledged message from the redelivery set.
func (b *MemoryBroker) ackMessage(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

// sweepLoop periodically re-enqueues deliveries whose visibility timeout has
// expired without an acknowledgment.
func (b *MemoryBroker) sweepLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return

		case <-ticker.C:
			b.redeliverExpired()
		}
	}
}

// redeliverExpired moves timed-out pending messages back onto the backlog.
func (b *MemoryBroker) redeliverExpired() {
	cutoff := time.Now().Add(-b.config.VisibilityTimeout)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, msg := range b.pending {
		if msg.deliveredAt.After(cutoff) {
			continue
		}

		select {
		case b.queue <- msg:
			delete(b.pending, id)
			b.logger.Warn("redelivering unacknowledged task",
				"task_id", msg.taskID,
				"attempt", msg.attempt)
		default:
			// Backlog is full; reset the clock and retry on a later sweep.
			msg.deliveredAt = time.Now()
		}
	}
}
