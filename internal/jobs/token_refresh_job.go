package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/declanh/threadcast/internal/repository"
	"github.com/declanh/threadcast/internal/service"
)

// TokenRefreshJob renews Threads long-lived tokens before they expire so a
// publish never fails on a token the worker could have refreshed.
type TokenRefreshJob struct {
	ar repository.AccountRepository
	th service.ThreadsService
}

func NewTokenRefreshJob(ar repository.AccountRepository, th service.ThreadsService) *TokenRefreshJob {
	return &TokenRefreshJob{ar: ar, th: th}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	accounts, err := j.ar.ListExpiringBefore(ctx, time.Now().Add(24*time.Hour))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, acc := range accounts {
		if err := j.th.RefreshToken(ctx, acc); err != nil {
			slog.Info("unable to refresh Threads token", "account", acc.AccountUsername, "error", err.Error())
		}
	}
}
