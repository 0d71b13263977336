package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/scraper"
)

// TestPipelineLifecycle wires the real broker, dispatcher and executor
// together against in-memory stores and drives tasks from submission to a
// terminal state.
func TestPipelineLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("submitted task ends up ready with a venue item", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		taskStore := NewMemoryTaskStore()
		itemStore := NewMemoryVenueItemStore()

		broker := NewMemoryBroker(DefaultMemoryBrokerConfig(), testLogger())
		broker.Start()
		defer broker.Stop()

		executor := NewExecutor(
			broker,
			taskStore,
			itemStore,
			&stubFetcher{},
			&stubExtractor{},
			DefaultExecutorConfig(),
			testLogger(),
		)
		executor.Start()
		defer executor.Stop()

		dispatcher := NewDispatcher(taskStore, broker, DispatcherConfig{
			Interval:  10 * time.Millisecond,
			BatchSize: 10,
		}, testLogger())
		dispatcher.Start()
		defer dispatcher.Stop()

		task := seedTask(t, taskStore, "https://example.com/venue")

		require.Eventually(t, func() bool {
			got, err := taskStore.GetByID(ctx, task.ID)
			return err == nil && got.Status == domain.TaskStatusReady
		}, 2*time.Second, 10*time.Millisecond)

		item, err := itemStore.GetByTaskID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Test Hall", item.Name)
	})

	t.Run("duplicate publishes produce exactly one winner", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		taskStore := NewMemoryTaskStore()
		itemStore := NewMemoryVenueItemStore()

		var mu sync.Mutex
		extractions := 0
		extractor := &stubExtractor{
			fn: func(extractCtx context.Context, content *scraper.PageContent) (*domain.VenueData, error) {
				mu.Lock()
				extractions++
				mu.Unlock()
				// Hold the claim long enough for the duplicates to race it.
				time.Sleep(20 * time.Millisecond)
				return &domain.VenueData{Name: "Test Hall"}, nil
			},
		}

		broker := NewMemoryBroker(DefaultMemoryBrokerConfig(), testLogger())
		broker.Start()
		defer broker.Stop()

		executor := NewExecutor(
			broker,
			taskStore,
			itemStore,
			&stubFetcher{},
			extractor,
			ExecutorConfig{WorkerCount: 4},
			testLogger(),
		)
		executor.Start()
		defer executor.Stop()

		task := seedTask(t, taskStore, "https://example.com/venue")

		for i := 0; i < 5; i++ {
			require.NoError(t, broker.Publish(ctx, task.ID))
		}

		require.Eventually(t, func() bool {
			got, err := taskStore.GetByID(ctx, task.ID)
			return err == nil && got.Status == domain.TaskStatusReady
		}, 2*time.Second, 10*time.Millisecond)

		// Give the losing deliveries time to drain.
		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, extractions)
	})

	t.Run("cancellation during processing wins over completion", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		taskStore := NewMemoryTaskStore()
		itemStore := NewMemoryVenueItemStore()

		fetchStarted := make(chan struct{})
		proceed := make(chan struct{})
		fetcher := &stubFetcher{
			fn: func(fetchCtx context.Context, url string) (*scraper.PageContent, error) {
				close(fetchStarted)
				<-proceed
				return &scraper.PageContent{Text: "text", URL: url}, nil
			},
		}

		broker := NewMemoryBroker(DefaultMemoryBrokerConfig(), testLogger())
		broker.Start()
		defer broker.Stop()

		executor := NewExecutor(
			broker,
			taskStore,
			itemStore,
			fetcher,
			&stubExtractor{},
			DefaultExecutorConfig(),
			testLogger(),
		)
		executor.Start()
		defer executor.Stop()

		task := seedTask(t, taskStore, "https://example.com/venue")
		require.NoError(t, broker.Publish(ctx, task.ID))

		<-fetchStarted
		require.NoError(t, taskStore.RequestCancel(ctx, task.ID))
		close(proceed)

		require.Eventually(t, func() bool {
			got, err := taskStore.GetByID(ctx, task.ID)
			return err == nil && got.Status == domain.TaskStatusCanceled
		}, 2*time.Second, 10*time.Millisecond)

		got, err := taskStore.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, got.VenueData)
	})
}
