package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/declanh/threadcast/internal/repository"
)

// SchedulerJob is the periodic driver of the publishing pipeline: each tick
// selects one batch of due posts and runs every post's pipeline independently.
type SchedulerJob struct {
	pr          repository.PostRepository
	runner      *pipeline.Runner
	batchSize   int
	concurrency int
}

func NewSchedulerJob(pr repository.PostRepository, runner *pipeline.Runner, batchSize, concurrency int) *SchedulerJob {
	return &SchedulerJob{
		pr:          pr,
		runner:      runner,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

func (j *SchedulerJob) Tick() {
	ctx := context.Background()

	posts, err := j.pr.ListDue(ctx, time.Now(), j.batchSize)
	if err != nil {
		slog.Error("error selecting due posts", "error", err.Error())
		return
	}
	if len(posts) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.concurrency)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(p *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			err := j.runner.Run(ctx, p)
			if err != nil && !errors.Is(err, pipeline.ErrClaimDenied) {
				// Already recorded on the post; one post's failure never
				// blocks the rest of the batch.
				slog.Info("pipeline run failed", "post_id", p.ID, "error", err.Error())
			}
		}(post)
	}

	wg.Wait()
}
