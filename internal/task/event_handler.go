package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/venue-scraper/internal/events"
)

// TaskTypeScrape identifies scrape request events.
const TaskTypeScrape = "scrape_venue"

// ScrapePayload is the payload carried by scrape request events.
type ScrapePayload struct {
	TaskID string `json:"task_id"`
}

// ScrapeRequestedHandler reacts to scrape request events by publishing the
// task ID to the broker, so freshly submitted tasks start processing without
// waiting for the next dispatcher scan. A full queue is not an error here:
// the dispatcher picks the task up later.
type ScrapeRequestedHandler struct {
	broker Broker
	logger *slog.Logger
}

// NewScrapeRequestedHandler creates a new ScrapeRequestedHandler.
func NewScrapeRequestedHandler(broker Broker, logger *slog.Logger) *ScrapeRequestedHandler {
	return &ScrapeRequestedHandler{
		broker: broker,
		logger: logger.With(slog.String("component", "scrape_requested_handler")),
	}
}

// Ensure ScrapeRequestedHandler implements events.EventHandler
var _ events.EventHandler = (*ScrapeRequestedHandler)(nil)

// HandleEvent publishes the referenced task to the broker.
func (h *ScrapeRequestedHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != TaskTypeScrape {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload ScrapePayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		h.logger.Error("invalid task ID",
			"error", err,
			"task_id", payload.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("invalid task ID: %w", err)
	}

	if err := h.broker.Publish(ctx, taskID); err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
			h.logger.Warn("immediate dispatch skipped, task waits for next scan",
				"task_id", taskID,
				"reason", err)
			return nil
		}
		return fmt.Errorf("failed to publish task: %w", err)
	}

	h.logger.Debug("task published for immediate processing",
		"task_id", taskID,
		"event_id", event.ID)
	return nil
}
