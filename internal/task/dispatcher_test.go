package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/venue-scraper/internal/domain"
)

// capturingBroker records published task IDs. When failAfter is non-negative
// it returns ErrQueueFull once that many publishes succeeded.
type capturingBroker struct {
	published []uuid.UUID
	failAfter int
}

func newCapturingBroker() *capturingBroker {
	return &capturingBroker{failAfter: -1}
}

func (b *capturingBroker) Publish(ctx context.Context, taskID uuid.UUID) error {
	if b.failAfter >= 0 && len(b.published) >= b.failAfter {
		return ErrQueueFull
	}
	b.published = append(b.published, taskID)
	return nil
}

func (b *capturingBroker) Deliveries() <-chan Delivery {
	return nil
}

// seedTask creates a pending task in the store.
func seedTask(t *testing.T, s *MemoryTaskStore, url string) *domain.ScrapeTask {
	t.Helper()

	task, err := domain.NewScrapeTask(url)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), task))
	return task
}

func TestDispatcher_DispatchOnce(t *testing.T) {
	t.Parallel()

	t.Run("publishes eligible tasks only", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		taskStore := NewMemoryTaskStore()
		broker := newCapturingBroker()

		eligible := seedTask(t, taskStore, "https://example.com/a")
		flagged := seedTask(t, taskStore, "https://example.com/b")
		claimed := seedTask(t, taskStore, "https://example.com/c")

		require.NoError(t, taskStore.RequestCancel(ctx, flagged.ID))
		won, err := taskStore.Claim(ctx, claimed.ID)
		require.NoError(t, err)
		require.True(t, won)

		d := NewDispatcher(taskStore, broker, DefaultDispatcherConfig(), testLogger())
		d.DispatchOnce(ctx)

		assert.Equal(t, []uuid.UUID{eligible.ID}, broker.published)
	})

	t.Run("respects batch size", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		taskStore := NewMemoryTaskStore()
		broker := newCapturingBroker()

		for i := 0; i < 5; i++ {
			seedTask(t, taskStore, "https://example.com/venue")
		}

		d := NewDispatcher(taskStore, broker, DispatcherConfig{
			Interval:  time.Minute,
			BatchSize: 3,
		}, testLogger())
		d.DispatchOnce(ctx)

		assert.Len(t, broker.published, 3)
	})

	t.Run("defers remainder when queue fills", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		taskStore := NewMemoryTaskStore()
		broker := newCapturingBroker()
		broker.failAfter = 2

		for i := 0; i < 5; i++ {
			seedTask(t, taskStore, "https://example.com/venue")
		}

		d := NewDispatcher(taskStore, broker, DefaultDispatcherConfig(), testLogger())
		d.DispatchOnce(ctx)

		// Publishing stops at the full queue; the rest waits for the next
		// scan, when the store still reports them pending.
		assert.Len(t, broker.published, 2)
	})
}

func TestDispatcher_StartScansPeriodically(t *testing.T) {
	t.Parallel()

	taskStore := NewMemoryTaskStore()
	broker := NewMemoryBroker(DefaultMemoryBrokerConfig(), testLogger())
	broker.Start()
	defer broker.Stop()

	task := seedTask(t, taskStore, "https://example.com/venue")

	d := NewDispatcher(taskStore, broker, DispatcherConfig{
		Interval:  10 * time.Millisecond,
		BatchSize: 10,
	}, testLogger())
	d.Start()
	defer d.Stop()

	delivery := receiveDelivery(t, broker, time.Second)
	assert.Equal(t, task.ID, delivery.TaskID)
	delivery.Ack()
}
