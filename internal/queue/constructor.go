package queue

import (
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/declanh/threadcast/internal/repository"
)

// Queue handles publish-now tasks: the API enqueues them, the worker runs the
// same pipeline as the scheduler tick. The claim keeps the two paths from
// double-publishing.
type Queue struct {
	pr     repository.PostRepository
	runner *pipeline.Runner
}

func NewQueue(pr repository.PostRepository, runner *pipeline.Runner) *Queue {
	return &Queue{pr: pr, runner: runner}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
