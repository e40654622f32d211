package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/repository"
	"github.com/declanh/threadcast/internal/transfer"
)

type PostService interface {
	Create(ctx context.Context, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID int64) (*models.Post, error)
	Update(ctx context.Context, pu *transfer.PostUpdate) error
	Retry(ctx context.Context, postID int64) error
	Remove(ctx context.Context, postID int64) error
	PublishableNow(ctx context.Context, postID int64) (*models.Post, error)
}

type postService struct {
	pr repository.PostRepository
}

func NewPostService(pr repository.PostRepository) PostService {
	return &postService{pr: pr}
}

func (s *postService) Create(ctx context.Context, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}

	post, err := buildPost(pc)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	postID, err := s.pr.Create(ctx, post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	return postID, nil
}

func buildPost(pc *transfer.PostCreation) (*models.Post, error) {
	if !models.ValidPostType(pc.PostType) {
		return nil, fmt.Errorf("invalid post type: %s", pc.PostType)
	}

	if pc.Content == "" && (pc.SkipAI || pc.Topic == "") {
		return nil, errors.New("content cannot be empty unless a topic is set for AI generation")
	}

	post := &models.Post{
		ExternalSourceID: pc.ExternalSourceID,
		Topic:            pc.Topic,
		Content:          pc.Content,
		SkipAI:           pc.SkipAI,
		PostType:         pc.PostType,
		CommentText:      pc.CommentText,
		VideoURL:         pc.VideoURL,
		ImageURLs:        pc.ImageURLs,
		MergeLinks:       pc.MergeLinks,
		Status:           models.PostStatusDraft,
	}

	if err := post.ValidateMedia(); err != nil {
		return nil, err
	}

	if pc.ScheduledAt != "" {
		scheduledAt, err := time.Parse(time.RFC3339, pc.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduled time format: %w", err)
		}
		post.ScheduledAt = &scheduledAt
		if !pc.Draft {
			post.Status = models.PostStatusScheduled
		}
	} else if !pc.Draft {
		return nil, errors.New("scheduled_at is required unless the post is a draft")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.pr.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID int64) (*models.Post, error) {
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil {
		return nil, errors.New("post doesn't exist")
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, pu *transfer.PostUpdate) error {
	if pu == nil || pu.ID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	existing, err := s.pr.GetByID(ctx, pu.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.New("post doesn't exist")
	}
	if existing.Status == models.PostStatusPublished || existing.JobID != "" {
		return errors.New("post can no longer be edited")
	}

	post, err := buildPost(&pu.PostCreation)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	post.ID = pu.ID

	// Scheduling a draft is the one status change the API applies here;
	// everything else keeps its current status.
	if !(existing.Status == models.PostStatusDraft && models.ValidTransition(existing.Status, post.Status)) {
		post.Status = existing.Status
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}
	return nil
}

// Retry resets a failed post to scheduled, the only legal backward
// transition.
func (s *postService) Retry(ctx context.Context, postID int64) error {
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	reset, err := s.pr.Retry(ctx, postID)
	if err != nil {
		return fmt.Errorf("error retrying post: %w", err)
	}
	if !reset {
		return errors.New("post is not in a failed state")
	}
	return nil
}

func (s *postService) Remove(ctx context.Context, postID int64) error {
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post doesn't exist")
	}
	if post.JobID != "" {
		return errors.New("post is currently being published")
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

// PublishableNow validates that a post can be pushed through the pipeline
// immediately and returns it.
func (s *postService) PublishableNow(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := s.PostInfo(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusScheduled {
		return nil, fmt.Errorf("post status is %s, only scheduled posts can be published", post.Status)
	}
	return post, nil
}
