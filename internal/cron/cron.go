// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package cron runs the periodic maintenance jobs: expiring stale checkins,
// pruning expired tokens, and purging old soft-deleted rows. Each completed
// job upserts its cron_job_runs row so operators can see liveness.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/services/checkin"
)

// Job names, as recorded in cron_job_runs.
const (
	JobExpireStaleCheckins = "expire_stale_checkins"
	JobPruneExpiredTokens  = "prune_expired_tokens"
	JobPurgeSoftDeletes    = "purge_soft_deletes"
)

// PurgeRetention is how long soft-deleted rows stay recoverable.
const PurgeRetention = 30 * 24 * time.Hour

// Runner drives the maintenance loop.
type Runner struct {
	repo     *repository.Repository
	engine   *checkin.Engine
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a maintenance runner. A non-positive interval defaults
// to one minute.
func NewRunner(repo *repository.Repository, engine *checkin.Engine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		repo:     repo,
		engine:   engine,
		interval: interval,
	}
}

// Start runs the loop in the background until ctx is canceled or Stop is
// called. The first pass runs immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)

		r.RunOnce(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the current pass to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunOnce executes every maintenance job one time. Job failures are logged
// and do not stop the remaining jobs.
func (r *Runner) RunOnce(ctx context.Context) {
	r.expireStaleCheckins(ctx)
	r.pruneExpiredTokens(ctx)
	r.purgeSoftDeletes(ctx)
}

func (r *Runner) expireStaleCheckins(ctx context.Context) {
	count, err := r.engine.ExpireStale(ctx)
	if err != nil {
		slog.Error("cron_job_failed", "job", JobExpireStaleCheckins, "error", err)
		return
	}
	slog.Debug("cron_job_done", "job", JobExpireStaleCheckins, "expired", count)
	r.record(ctx, JobExpireStaleCheckins)
}

func (r *Runner) pruneExpiredTokens(ctx context.Context) {
	count, err := r.repo.DeleteExpiredTokens(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("cron_job_failed", "job", JobPruneExpiredTokens, "error", err)
		return
	}
	slog.Debug("cron_job_done", "job", JobPruneExpiredTokens, "pruned", count)
	r.record(ctx, JobPruneExpiredTokens)
}

func (r *Runner) purgeSoftDeletes(ctx context.Context) {
	purged, err := r.repo.PurgeSoftDeleted(ctx, time.Now().UTC().Add(-PurgeRetention))
	if err != nil {
		slog.Error("cron_job_failed", "job", JobPurgeSoftDeletes, "error", err)
		return
	}
	for table, count := range purged {
		if count > 0 {
			slog.Info("purged_soft_deleted_rows", "table", table, "count", count)
		}
	}
	r.record(ctx, JobPurgeSoftDeletes)
}

func (r *Runner) record(ctx context.Context, jobName string) {
	if err := r.repo.UpsertCronJobRun(ctx, jobName, time.Now().UTC()); err != nil {
		slog.Error("cron_job_record_failed", "job", jobName, "error", err)
	}
}
