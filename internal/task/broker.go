package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors returned by broker implementations
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Delivery is a single at-least-once message handed to a worker. The payload
// is just the task ID; the worker loads current state from the store. Ack
// must be called once the delivery needs no redelivery, which is after the
// task reached a terminal state or turned out to be someone else's.
type Delivery struct {
	// TaskID identifies the task to process.
	TaskID uuid.UUID

	// Attempt counts deliveries of this message, starting at 1.
	Attempt int

	ack func()
}

// Ack marks the delivery as handled so the broker stops redelivering it.
// Safe to call on a zero-value Delivery.
func (d Delivery) Ack() {
	if d.ack != nil {
		d.ack()
	}
}

// Broker decouples task submission from task execution with at-least-once
// delivery semantics. Messages that are delivered but not acknowledged
// within the visibility timeout are delivered again.
type Broker interface {
	// Publish enqueues a task ID for processing.
	// Returns ErrQueueFull when the queue is at capacity and ErrQueueClosed
	// after shutdown; publishing the same ID twice is allowed.
	Publish(ctx context.Context, taskID uuid.UUID) error

	// Deliveries returns the channel workers receive messages on.
	// The channel is closed when the broker shuts down.
	Deliveries() <-chan Delivery
}
