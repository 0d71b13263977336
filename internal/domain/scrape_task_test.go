package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScrapeTask(t *testing.T) {
	t.Parallel()

	t.Run("valid task", func(t *testing.T) {
		t.Parallel()

		task, err := NewScrapeTask("https://example.test/venue")

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, "https://example.test/venue", task.SourceURL)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.False(t, task.CancelRequested)
		assert.Nil(t, task.VenueData)
		assert.Empty(t, task.ErrorMessage)
		assert.Nil(t, task.ProcessedAt)
		assert.False(t, task.CreatedAt.IsZero())
	})

	t.Run("empty source URL", func(t *testing.T) {
		t.Parallel()

		task, err := NewScrapeTask("")

		assert.ErrorIs(t, err, ErrEmptySourceURL)
		assert.Nil(t, task)
	})

	t.Run("malformed source URL", func(t *testing.T) {
		t.Parallel()

		task, err := NewScrapeTask("not a url")

		assert.ErrorIs(t, err, ErrInvalidSourceURL)
		assert.Nil(t, task)
	})

	t.Run("missing scheme", func(t *testing.T) {
		t.Parallel()

		task, err := NewScrapeTask("example.test/venue")

		assert.ErrorIs(t, err, ErrInvalidSourceURL)
		assert.Nil(t, task)
	})
}

func TestScrapeTaskValidate(t *testing.T) {
	t.Parallel()

	t.Run("missing ID", func(t *testing.T) {
		t.Parallel()

		task := &ScrapeTask{
			SourceURL: "https://example.test/venue",
			Status:    TaskStatusPending,
		}

		assert.ErrorIs(t, task.Validate(), ErrEmptyTaskID)
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()

		task := &ScrapeTask{
			ID:        uuid.New(),
			SourceURL: "https://example.test/venue",
			Status:    TaskStatus("archived"),
		}

		assert.ErrorIs(t, task.Validate(), ErrInvalidStatus)
	})
}

func TestTaskStatusIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []TaskStatus{TaskStatusReady, TaskStatusFailed, TaskStatusCanceled}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), "expected %s to be terminal", status)
	}

	nonTerminal := []TaskStatus{TaskStatusPending, TaskStatusProcessing}
	for _, status := range nonTerminal {
		assert.False(t, status.IsTerminal(), "expected %s to be non-terminal", status)
	}
}

func TestTaskStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{"pending to processing", TaskStatusPending, TaskStatusProcessing, true},
		{"pending to canceled", TaskStatusPending, TaskStatusCanceled, true},
		{"pending to ready", TaskStatusPending, TaskStatusReady, false},
		{"pending to failed", TaskStatusPending, TaskStatusFailed, false},
		{"processing to ready", TaskStatusProcessing, TaskStatusReady, true},
		{"processing to failed", TaskStatusProcessing, TaskStatusFailed, true},
		{"processing to canceled", TaskStatusProcessing, TaskStatusCanceled, true},
		{"processing to pending", TaskStatusProcessing, TaskStatusPending, false},
		{"ready is terminal", TaskStatusReady, TaskStatusCanceled, false},
		{"failed is terminal", TaskStatusFailed, TaskStatusProcessing, false},
		{"canceled is terminal", TaskStatusCanceled, TaskStatusReady, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}
