// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package cron_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millwardesque/parkbench/internal/cron"
	"github.com/millwardesque/parkbench/internal/events"
	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/roster"
	"github.com/millwardesque/parkbench/internal/services/checkin"
	"github.com/millwardesque/parkbench/internal/testutil"
)

func newRunner(t *testing.T) (*cron.Runner, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	cache := roster.New(repo.ActiveRoster, time.Millisecond)
	engine := checkin.NewEngine(repo, cache, events.NewBroadcaster())
	return cron.NewRunner(repo, engine, time.Minute), repo
}

func TestRunOnce_ExpiresStaleCheckins(t *testing.T) {
	runner, repo := newRunner(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	park := testutil.NewTestLocation(t, repo, "High Park")

	past := time.Now().UTC().Add(-2 * time.Hour)
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{{
		VisitorID:     visitor.ID,
		LocationID:    park.ID,
		CheckinAt:     past,
		EstCheckoutAt: past.Add(time.Hour),
	}})
	require.NoError(t, err)

	runner.RunOnce(ctx)

	active, err := repo.ActiveCheckinsForVisitors(ctx, []int64{visitor.ID})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRunOnce_PrunesExpiredTokens(t *testing.T) {
	runner, repo := newRunner(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeMagicLink, "carol@example.com", "expired", time.Now().UTC().Add(-time.Minute)))

	runner.RunOnce(ctx)

	_, err := repo.TokenByHash(ctx, "expired")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunOnce_RecordsJobRuns(t *testing.T) {
	runner, repo := newRunner(t)
	ctx := context.Background()

	before := time.Now().UTC()
	runner.RunOnce(ctx)

	for _, job := range []string{cron.JobExpireStaleCheckins, cron.JobPruneExpiredTokens, cron.JobPurgeSoftDeletes} {
		run, err := repo.CronJobRun(ctx, job)
		require.NoError(t, err, job)
		assert.False(t, run.LastRunAt.Before(before.Add(-time.Second)), job)
	}
}

func TestStartStop(t *testing.T) {
	runner, _ := newRunner(t)

	// Stop must cancel the loop and return without deadlocking, and a
	// stopped runner must be restartable.
	runner.Start(context.Background())
	runner.Stop()
	runner.Start(context.Background())
	runner.Stop()
}
