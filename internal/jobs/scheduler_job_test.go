package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/declanh/threadcast/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passthroughResolver struct{}

func (passthroughResolver) ResolveContent(ctx context.Context, post *models.Post) (string, error) {
	return post.Content, nil
}

type countingPublisher struct {
	calls atomic.Int64
	ids   sync.Map // post id -> struct{}
}

func (p *countingPublisher) Publish(ctx context.Context, post *models.Post, content string) (string, error) {
	p.calls.Add(1)
	p.ids.Store(post.ID, struct{}{})
	return "p123", nil
}

func createPost(t *testing.T, pr repository.PostRepository, status string, scheduledAt time.Time) int64 {
	t.Helper()

	id, err := pr.Create(context.Background(), &models.Post{
		Content:     "hi",
		Status:      status,
		SkipAI:      true,
		PostType:    models.PostTypeText,
		ScheduledAt: &scheduledAt,
	})
	require.NoError(t, err)
	return id
}

func TestTickPublishesOnlyDuePosts(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	dueID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-time.Minute))
	futureID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(time.Hour))
	draftAt := time.Now().Add(-time.Minute)
	draftID, err := pr.Create(context.Background(), &models.Post{
		Content: "hi", Status: models.PostStatusDraft, SkipAI: true,
		PostType: models.PostTypeText, ScheduledAt: &draftAt,
	})
	require.NoError(t, err)

	publisher := &countingPublisher{}
	runner := pipeline.NewRunner(pr, passthroughResolver{}, publisher, 5)
	job := NewSchedulerJob(pr, runner, 10, 10)

	job.Tick()

	assert.EqualValues(t, 1, publisher.calls.Load())
	_, published := publisher.ids.Load(dueID)
	assert.True(t, published)

	future, err := pr.GetByID(context.Background(), futureID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, future.Status, "future post untouched")

	draft, err := pr.GetByID(context.Background(), draftID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, draft.Status, "draft never selected")
}

func TestListDueOrderedByScheduledAt(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	lateID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-time.Minute))
	earlyID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-time.Hour))
	midID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-30*time.Minute))

	due, err := pr.ListDue(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []int64{earlyID, midID, lateID}, []int64{due[0].ID, due[1].ID, due[2].ID})

	limited, err := pr.ListDue(context.Background(), time.Now(), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2, "batch size bounds per-tick work")
	assert.Equal(t, earlyID, limited[0].ID)
}

func TestConcurrentTicksPublishOnce(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	postID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-time.Minute))

	publisher := &countingPublisher{}
	runner := pipeline.NewRunner(pr, passthroughResolver{}, publisher, 5)
	job := NewSchedulerJob(pr, runner, 10, 10)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Tick()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, publisher.calls.Load(), "two ticks over the same due post publish once")

	got, err := pr.GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.Empty(t, got.JobID)
}

func TestReapFreesOnlyExpiredClaims(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	staleID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-time.Hour))
	freshID := createPost(t, pr, models.PostStatusScheduled, time.Now().Add(-time.Hour))

	claimed, err := pr.Claim(context.Background(), staleID, "dead-worker", time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)
	claimed, err = pr.Claim(context.Background(), freshID, "live-worker", time.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	job := NewReaperJob(pr, 10*time.Minute)
	job.Reap()

	stale, err := pr.GetByID(context.Background(), staleID)
	require.NoError(t, err)
	assert.Empty(t, stale.JobID, "expired claim reclaimed")

	fresh, err := pr.GetByID(context.Background(), freshID)
	require.NoError(t, err)
	assert.Equal(t, "live-worker", fresh.JobID, "fresh claim kept")
}
