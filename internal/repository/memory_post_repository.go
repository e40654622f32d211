package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/declanh/threadcast/internal/models"
)

// memoryPostRepository is an in-memory PostRepository with the same
// conditional-write semantics as the Postgres implementation. Used in tests
// and for running the pipeline without a database.
type memoryPostRepository struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
}

func NewMemoryPostRepository() PostRepository {
	return &memoryPostRepository{nextID: 1, posts: make(map[int64]*models.Post)}
}

func (r *memoryPostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *post
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.nextID++
	r.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (r *memoryPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (r *memoryPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := make([]*models.Post, 0, len(r.posts))
	for _, post := range r.posts {
		cp := *post
		posts = append(posts, &cp)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (r *memoryPostRepository) Update(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok || existing.JobID != "" || existing.Status == models.PostStatusPublished {
		return nil
	}
	cp := *post
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	r.posts[post.ID] = &cp
	return nil
}

func (r *memoryPostRepository) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.posts, id)
	return nil
}

func (r *memoryPostRepository) ExistsByExternalSourceID(ctx context.Context, sourceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, post := range r.posts {
		if post.ExternalSourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.Post
	for _, post := range r.posts {
		if post.Status == models.PostStatusScheduled && post.JobID == "" &&
			post.ScheduledAt != nil && !post.ScheduledAt.After(now) {
			cp := *post
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *memoryPostRepository) Claim(ctx context.Context, id int64, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusScheduled || post.JobID != "" {
		return false, nil
	}
	post.JobID = token
	post.ClaimedAt = &now
	post.UpdatedAt = now
	return true, nil
}

func (r *memoryPostRepository) Release(ctx context.Context, id int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.JobID != token {
		return nil
	}
	post.JobID = ""
	post.ClaimedAt = nil
	post.UpdatedAt = time.Now()
	return nil
}

func (r *memoryPostRepository) RecordSuccess(ctx context.Context, id int64, token, platformPostID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.JobID != token {
		return nil
	}
	post.Status = models.PostStatusPublished
	post.PlatformPostID = platformPostID
	post.PublishedAt = &now
	post.Error = ""
	post.JobID = ""
	post.ClaimedAt = nil
	post.UpdatedAt = now
	return nil
}

func (r *memoryPostRepository) RecordFailure(ctx context.Context, id int64, token, reason string, retryable bool, maxAttempts int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.JobID != token {
		return nil
	}
	post.JobID = ""
	post.ClaimedAt = nil
	post.AttemptCount++
	post.Error = reason
	if retryable && post.AttemptCount < maxAttempts {
		post.Status = models.PostStatusScheduled
	} else {
		post.Status = models.PostStatusFailed
	}
	post.UpdatedAt = now
	return nil
}

func (r *memoryPostRepository) Retry(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusFailed {
		return false, nil
	}
	post.Status = models.PostStatusScheduled
	post.Error = ""
	post.AttemptCount = 0
	post.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryPostRepository) ReapStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped int64
	for _, post := range r.posts {
		if post.JobID != "" && post.Status == models.PostStatusScheduled &&
			post.ClaimedAt != nil && post.ClaimedAt.Before(olderThan) {
			post.JobID = ""
			post.ClaimedAt = nil
			post.UpdatedAt = time.Now()
			reaped++
		}
	}
	return reaped, nil
}
