package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/declanh/threadcast/internal/models"
	"github.com/lib/pq"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Remove(ctx context.Context, id int64) error
	ExistsByExternalSourceID(ctx context.Context, sourceID string) (bool, error)

	// Pipeline operations. Claim, Release, RecordSuccess and RecordFailure
	// are conditional single-row writes; they are the only cross-process
	// synchronization primitive.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	Claim(ctx context.Context, id int64, token string, now time.Time) (bool, error)
	Release(ctx context.Context, id int64, token string) error
	RecordSuccess(ctx context.Context, id int64, token, platformPostID string, now time.Time) error
	RecordFailure(ctx context.Context, id int64, token, reason string, retryable bool, maxAttempts int, now time.Time) error
	Retry(ctx context.Context, id int64) (bool, error)
	ReapStaleClaims(ctx context.Context, olderThan time.Time) (int64, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, COALESCE(external_source_id, ''), COALESCE(topic, ''), content, status, skip_ai,
	COALESCE(platform_post_id, ''), post_type, COALESCE(comment_text, ''), COALESCE(video_url, ''),
	image_urls, COALESCE(merge_links, ''), scheduled_at, published_at, COALESCE(job_id, ''),
	claimed_at, attempt_count, COALESCE(error, ''), created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	var imageURLs pq.StringArray
	err := row.Scan(&post.ID, &post.ExternalSourceID, &post.Topic, &post.Content, &post.Status, &post.SkipAI,
		&post.PlatformPostID, &post.PostType, &post.CommentText, &post.VideoURL,
		&imageURLs, &post.MergeLinks, &post.ScheduledAt, &post.PublishedAt, &post.JobID,
		&post.ClaimedAt, &post.AttemptCount, &post.Error, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.ImageURLs = imageURLs
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (external_source_id, topic, content, status, skip_ai, post_type,
			comment_text, video_url, image_urls, merge_links, scheduled_at)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''), $11)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, post.ExternalSourceID, post.Topic, post.Content,
		post.Status, post.SkipAI, post.PostType, post.CommentText, post.VideoURL,
		pq.Array(post.ImageURLs), post.MergeLinks, post.ScheduledAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Update rewrites the mutable fields. Posts that are published or currently
// claimed are left alone.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET topic = NULLIF($2, ''),
			content = $3,
			status = $4,
			skip_ai = $5,
			post_type = $6,
			comment_text = NULLIF($7, ''),
			video_url = NULLIF($8, ''),
			image_urls = $9,
			merge_links = NULLIF($10, ''),
			scheduled_at = $11,
			updated_at = $12
		WHERE id = $1 AND status IN ('draft', 'scheduled', 'failed') AND job_id IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, post.ID, post.Topic, post.Content, post.Status,
		post.SkipAI, post.PostType, post.CommentText, post.VideoURL, pq.Array(post.ImageURLs),
		post.MergeLinks, post.ScheduledAt, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ExistsByExternalSourceID(ctx context.Context, sourceID string) (bool, error) {
	query := `SELECT 1 FROM posts WHERE external_source_id = $1`

	var result int
	err := r.db.QueryRowContext(ctx, query, sourceID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_at <= $2 AND job_id IS NULL
		ORDER BY scheduled_at ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Claim sets the job token if and only if the post is still scheduled and
// unclaimed. RowsAffected decides the race: exactly one concurrent caller
// observes 1, everyone else observes 0.
func (r *postRepository) Claim(ctx context.Context, id int64, token string, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET job_id = $2, claimed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4 AND job_id IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, token, now, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Release clears the claim only while the caller still owns it.
func (r *postRepository) Release(ctx context.Context, id int64, token string) error {
	query := `
		UPDATE posts
		SET job_id = NULL, claimed_at = NULL, updated_at = $3
		WHERE id = $1 AND job_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, id, token, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RecordSuccess finalizes a publish. A stale token matches no row and the
// write is a no-op: the late writer has no authority.
func (r *postRepository) RecordSuccess(ctx context.Context, id int64, token, platformPostID string, now time.Time) error {
	query := `
		UPDATE posts
		SET status = $3, platform_post_id = $4, published_at = $5, error = NULL,
			job_id = NULL, claimed_at = NULL, updated_at = $5
		WHERE id = $1 AND job_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, id, token, models.PostStatusPublished, platformPostID, now)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RecordFailure clears the claim and either leaves the post scheduled for
// re-selection (retryable, attempts below the cap) or marks it failed.
// Conditioned on the token the same way as RecordSuccess.
func (r *postRepository) RecordFailure(ctx context.Context, id int64, token, reason string, retryable bool, maxAttempts int, now time.Time) error {
	query := `
		UPDATE posts
		SET job_id = NULL, claimed_at = NULL,
			attempt_count = attempt_count + 1,
			error = $3,
			status = CASE WHEN $4 AND attempt_count + 1 < $5 THEN $6 ELSE $7 END,
			updated_at = $8
		WHERE id = $1 AND job_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, id, token, reason, retryable, maxAttempts,
		models.PostStatusScheduled, models.PostStatusFailed, now)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Retry resets a failed post for another pass (manual operator action).
func (r *postRepository) Retry(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2, error = NULL, attempt_count = 0, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, id, models.PostStatusScheduled, time.Now(), models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ReapStaleClaims frees posts whose claim outlived the TTL, typically after a
// worker crash mid-run. They become eligible for re-selection on a later tick.
func (r *postRepository) ReapStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE posts
		SET job_id = NULL, claimed_at = NULL, updated_at = $3
		WHERE job_id IS NOT NULL AND claimed_at < $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query, olderThan, models.PostStatusScheduled, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}
