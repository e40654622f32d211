package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		// Deleted between enqueue and processing; nothing to do.
		slog.Info("publish task dropped, post no longer exists", "post_id", payload.PostID)
		return nil
	}
	if post.Status != models.PostStatusScheduled {
		slog.Info("publish task dropped, post not scheduled", "post_id", post.ID, "status", post.Status)
		return nil
	}

	err = q.runner.Run(ctx, post)
	if errors.Is(err, pipeline.ErrClaimDenied) {
		// The scheduler tick (or another instance) got there first.
		return nil
	}
	if err != nil {
		// Recorded on the post already; asynq retrying here would fight the
		// pipeline's own retry accounting.
		slog.Info(fmt.Sprintf("publish task failed: %v", err), "post_id", post.ID)
	}
	return nil
}
