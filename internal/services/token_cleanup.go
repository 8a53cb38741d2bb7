package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mingle-app/mingle-backend/internal/repository"
)

// TokenCleanupWorker periodically hard-deletes expired tokens. Access tokens
// have no lazy removal path, so the sweep is their only reaper; expired
// refresh tokens are also swept here in case they are never presented again.
type TokenCleanupWorker struct {
	repo     repository.AuthRepository
	interval time.Duration
}

func NewTokenCleanupWorker(repo repository.AuthRepository, interval time.Duration) *TokenCleanupWorker {
	return &TokenCleanupWorker{repo: repo, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval. A failed
// sweep is logged and never terminates the loop.
func (w *TokenCleanupWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep deletes all currently expired tokens, one commit per table.
// Sweeping with nothing expired deletes zero rows and is not an error.
func (w *TokenCleanupWorker) Sweep(ctx context.Context) {
	deleted, err := w.repo.DeleteExpiredAccessTokens(ctx)
	if err != nil {
		slog.Error("access token sweep failed", "error", err)
	} else if deleted > 0 {
		slog.Info("access token sweep completed", "deleted", deleted)
	}

	deleted, err = w.repo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		slog.Error("refresh token sweep failed", "error", err)
	} else if deleted > 0 {
		slog.Info("refresh token sweep completed", "deleted", deleted)
	}
}
