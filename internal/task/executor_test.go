package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/scraper"
)

// stubFetcher delegates to fn, counting calls.
type stubFetcher struct {
	fn    func(ctx context.Context, url string) (*scraper.PageContent, error)
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*scraper.PageContent, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(ctx, url)
	}
	return &scraper.PageContent{
		Text: "venue page text",
		URL:  url,
	}, nil
}

// stubExtractor delegates to fn, counting calls.
type stubExtractor struct {
	fn    func(ctx context.Context, content *scraper.PageContent) (*domain.VenueData, error)
	calls int
}

func (e *stubExtractor) Extract(ctx context.Context, content *scraper.PageContent) (*domain.VenueData, error) {
	e.calls++
	if e.fn != nil {
		return e.fn(ctx, content)
	}
	data := &domain.VenueData{Name: "Test Hall"}
	data.Normalize()
	return data, nil
}

// executorFixture bundles an executor with its collaborators for direct
// pipeline tests.
type executorFixture struct {
	executor  *Executor
	taskStore *MemoryTaskStore
	itemStore *MemoryVenueItemStore
	fetcher   *stubFetcher
	extractor *stubExtractor
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()

	f := &executorFixture{
		taskStore: NewMemoryTaskStore(),
		itemStore: NewMemoryVenueItemStore(),
		fetcher:   &stubFetcher{},
		extractor: &stubExtractor{},
	}
	f.executor = NewExecutor(
		NewMemoryBroker(DefaultMemoryBrokerConfig(), testLogger()),
		f.taskStore,
		f.itemStore,
		f.fetcher,
		f.extractor,
		DefaultExecutorConfig(),
		testLogger(),
	)
	return f
}

// process runs one delivery through the pipeline synchronously and reports
// whether it was acknowledged.
func (f *executorFixture) process(id uuid.UUID) bool {
	acked := false
	f.executor.processDelivery(Delivery{
		TaskID:  id,
		Attempt: 1,
		ack:     func() { acked = true },
	}, testLogger())
	return acked
}

func TestExecutor_HappyPath(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	acked := f.process(task.ID)
	assert.True(t, acked)

	got, err := f.taskStore.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReady, got.Status)
	require.NotNil(t, got.VenueData)
	assert.Equal(t, "Test Hall", got.VenueData.Name)
	assert.NotNil(t, got.ProcessedAt)

	item, err := f.itemStore.GetByTaskID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Hall", item.Name)
	assert.Equal(t, task.SourceURL, item.Link)
}

func TestExecutor_UnknownTaskAcked(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)

	acked := f.process(uuid.New())
	assert.True(t, acked)
	assert.Zero(t, f.fetcher.calls)
}

func TestExecutor_TerminalTaskUntouched(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	ctx := context.Background()
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	canceled, err := f.taskStore.Cancel(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, canceled)

	acked := f.process(task.ID)
	assert.True(t, acked)
	assert.Zero(t, f.fetcher.calls)

	got, err := f.taskStore.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, got.Status)
}

func TestExecutor_LostClaimRace(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	ctx := context.Background()
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	// Another worker holds the claim.
	won, err := f.taskStore.Claim(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, won)

	acked := f.process(task.ID)
	assert.True(t, acked)
	assert.Zero(t, f.fetcher.calls)

	got, err := f.taskStore.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
}

func TestExecutor_CancelBeforeFetch(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	ctx := context.Background()
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	require.NoError(t, f.taskStore.RequestCancel(ctx, task.ID))
	// The dispatcher filters flagged pending tasks, but a message published
	// before the flag was set can still arrive.
	acked := f.process(task.ID)
	assert.True(t, acked)
	assert.Zero(t, f.fetcher.calls)

	got, err := f.taskStore.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, got.Status)
}

func TestExecutor_CancelBeforeExtraction(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	ctx := context.Background()
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	// Cancellation arrives while the fetch is in flight.
	f.fetcher.fn = func(fetchCtx context.Context, url string) (*scraper.PageContent, error) {
		require.NoError(t, f.taskStore.RequestCancel(ctx, task.ID))
		return &scraper.PageContent{Text: "text", URL: url}, nil
	}

	acked := f.process(task.ID)
	assert.True(t, acked)
	assert.Equal(t, 1, f.fetcher.calls)
	assert.Zero(t, f.extractor.calls)

	got, err := f.taskStore.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, got.Status)
}

func TestExecutor_CancelBeforeCommit(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	ctx := context.Background()
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	// Cancellation arrives while extraction is in flight: the work is done
	// but the result is discarded at the final checkpoint.
	f.extractor.fn = func(extractCtx context.Context, content *scraper.PageContent) (*domain.VenueData, error) {
		require.NoError(t, f.taskStore.RequestCancel(ctx, task.ID))
		return &domain.VenueData{Name: "Too Late Hall"}, nil
	}

	acked := f.process(task.ID)
	assert.True(t, acked)

	got, err := f.taskStore.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, got.Status)
	assert.Nil(t, got.VenueData)

	_, err = f.itemStore.GetByTaskID(ctx, task.ID)
	assert.Error(t, err)
}

func TestExecutor_FetchFailure(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	f.fetcher.fn = func(ctx context.Context, url string) (*scraper.PageContent, error) {
		return nil, errors.New("status 503")
	}

	acked := f.process(task.ID)
	assert.True(t, acked)
	assert.Zero(t, f.extractor.calls)

	got, err := f.taskStore.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "fetch failed")
	assert.Contains(t, got.ErrorMessage, "status 503")
}

func TestExecutor_ExtractionFailure(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	f.extractor.fn = func(ctx context.Context, content *scraper.PageContent) (*domain.VenueData, error) {
		return nil, errors.New("content blocked")
	}

	acked := f.process(task.ID)
	assert.True(t, acked)

	got, err := f.taskStore.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "extraction failed")
}

func TestExecutor_VenueItemFailureKeepsTaskReady(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	task := seedTask(t, f.taskStore, "https://example.com/venue")
	f.itemStore.CreateErr = errors.New("connection reset")

	acked := f.process(task.ID)
	assert.True(t, acked)

	got, err := f.taskStore.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReady, got.Status)
	require.NotNil(t, got.VenueData)
}

func TestExecutor_DuplicateDelivery(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	require.True(t, f.process(task.ID))
	require.True(t, f.process(task.ID))

	assert.Equal(t, 1, f.fetcher.calls)
	assert.Equal(t, 1, f.extractor.calls)

	item, err := f.itemStore.GetByTaskID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, item.TaskID)
}

func TestExecutor_StaleClaimReclaimed(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(t)
	ctx := context.Background()
	f.taskStore.SetClaimLease(time.Nanosecond)
	task := seedTask(t, f.taskStore, "https://example.com/venue")

	// A worker claimed the task and crashed.
	won, err := f.taskStore.Claim(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, won)

	time.Sleep(time.Millisecond)

	acked := f.process(task.ID)
	assert.True(t, acked)

	got, err := f.taskStore.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReady, got.Status)
}
