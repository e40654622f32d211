package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/declanh/threadcast/internal/repository"
)

// ReaperJob frees claims left behind by a worker that died mid-run. Kept
// separate from the scheduler tick so a slow batch cannot starve claim
// recovery.
type ReaperJob struct {
	pr  repository.PostRepository
	ttl time.Duration
}

func NewReaperJob(pr repository.PostRepository, ttl time.Duration) *ReaperJob {
	return &ReaperJob{pr: pr, ttl: ttl}
}

func (j *ReaperJob) Reap() {
	ctx := context.Background()

	reaped, err := j.pr.ReapStaleClaims(ctx, time.Now().Add(-j.ttl))
	if err != nil {
		slog.Error("error reaping stale claims", "error", err.Error())
		return
	}
	if reaped > 0 {
		slog.Warn("reclaimed stale publish claims", "count", reaped)
	}
}
