package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ContentResolver materializes post content before publishing. Implemented by
// service.AIService.
type ContentResolver interface {
	ResolveContent(ctx context.Context, post *models.Post) (string, error)
}

// Publisher pushes one resolved post to the platform and returns its platform
// post id. Implemented by service.ThreadsService.
type Publisher interface {
	Publish(ctx context.Context, post *models.Post, content string) (string, error)
}

// Runner drives one post through claim → resolve → publish → record. Runs for
// different posts are independent; all coordination with concurrent workers
// goes through the conditional writes in the repository.
type Runner struct {
	pr          repository.PostRepository
	resolver    ContentResolver
	publisher   Publisher
	maxAttempts int
}

func NewRunner(pr repository.PostRepository, resolver ContentResolver, publisher Publisher, maxAttempts int) *Runner {
	return &Runner{
		pr:          pr,
		resolver:    resolver,
		publisher:   publisher,
		maxAttempts: maxAttempts,
	}
}

// Run executes the full pipeline for one post. Returns ErrClaimDenied when
// another run owns the post; any other error has already been recorded on the
// post record.
func (r *Runner) Run(ctx context.Context, post *models.Post) error {
	token, err := gonanoid.New()
	if err != nil {
		return err
	}

	claimed, err := r.pr.Claim(ctx, post.ID, token, time.Now())
	if err != nil {
		return err
	}
	if !claimed {
		return ErrClaimDenied
	}

	if ctx.Err() != nil {
		// Shutting down before any external call was made: hand the claim back.
		if err := r.pr.Release(ctx, post.ID, token); err != nil {
			slog.Info(err.Error())
		}
		return ctx.Err()
	}

	content, err := r.resolver.ResolveContent(ctx, post)
	if err != nil {
		genErr := &ContentGenerationError{Err: err}
		return r.fail(ctx, post.ID, token, genErr)
	}

	platformPostID, err := r.publisher.Publish(ctx, post, content)
	if err != nil {
		return r.fail(ctx, post.ID, token, err)
	}

	if err := r.pr.RecordSuccess(ctx, post.ID, token, platformPostID, time.Now()); err != nil {
		return err
	}

	slog.Info("post published", "post_id", post.ID, "platform_post_id", platformPostID)
	return nil
}

func (r *Runner) fail(ctx context.Context, postID int64, token string, cause error) error {
	slog.Error("publish failed", "post_id", postID, "error", cause.Error())
	if err := r.pr.RecordFailure(ctx, postID, token, cause.Error(), Retryable(cause), r.maxAttempts, time.Now()); err != nil {
		return err
	}
	return cause
}
