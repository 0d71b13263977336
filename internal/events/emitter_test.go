package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/venue-scraper/internal/events"
)

type recordingHandler struct {
	seen []*events.TaskRequestEvent
	err  error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	h.seen = append(h.seen, event)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	t.Run("delivers event to all handlers", func(t *testing.T) {
		t.Parallel()

		emitter := events.NewInMemoryEventEmitter(testLogger())
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event, err := events.NewTaskRequestEvent("scrape_venue", map[string]string{"task_id": "abc"})
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, first.seen, 1)
		assert.Len(t, second.seen, 1)
		assert.Equal(t, event.ID, first.seen[0].ID)
	})

	t.Run("handler error does not stop delivery", func(t *testing.T) {
		t.Parallel()

		emitter := events.NewInMemoryEventEmitter(testLogger())
		failing := &recordingHandler{err: errors.New("boom")}
		ok := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		event, err := events.NewTaskRequestEvent("scrape_venue", nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "boom")
		assert.Len(t, ok.seen, 1)
	})

	t.Run("no handlers is a no-op", func(t *testing.T) {
		t.Parallel()

		emitter := events.NewInMemoryEventEmitter(testLogger())

		event, err := events.NewTaskRequestEvent("scrape_venue", nil)
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})
}

func TestTaskRequestEvent_UnmarshalPayload(t *testing.T) {
	t.Parallel()

	event, err := events.NewTaskRequestEvent("scrape_venue", map[string]string{"task_id": "abc"})
	require.NoError(t, err)

	var payload struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "abc", payload.TaskID)
}
