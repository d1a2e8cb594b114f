// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
)

// UpsertCronJobRun records the completion time of a named maintenance job.
func (r *Repository) UpsertCronJobRun(ctx context.Context, jobName string, ranAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cron_job_runs (job_name, last_run_at) VALUES (?, ?)
		ON CONFLICT (job_name) DO UPDATE SET last_run_at = excluded.last_run_at`,
		jobName, ranAt)
	return wrapError(err)
}

// CronJobRun retrieves the last-run record for a named job.
func (r *Repository) CronJobRun(ctx context.Context, jobName string) (*models.CronJobRun, error) {
	var run models.CronJobRun
	err := r.db.GetContext(ctx, &run,
		`SELECT job_name, last_run_at FROM cron_job_runs WHERE job_name = ?`, jobName)
	if err != nil {
		return nil, wrapError(err)
	}
	return &run, nil
}
