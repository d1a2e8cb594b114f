// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/testutil"
)

func newCheckin(visitorID, locationID int64, at time.Time, minutes int) repository.NewCheckin {
	return repository.NewCheckin{
		VisitorID:     visitorID,
		LocationID:    locationID,
		CheckinAt:     at,
		EstCheckoutAt: at.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestCreateCheckins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	created, err := repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(visitor.ID, park.ID, now, 60),
	})

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, visitor.ID, created[0].VisitorID)
	assert.Equal(t, park.ID, created[0].LocationID)
	assert.Nil(t, created[0].ActualCheckoutAt)
	assert.WithinDuration(t, now.Add(time.Hour), created[0].EstCheckoutAt, time.Second)
}

func TestCreateCheckins_SecondActiveCheckinRejected(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, park.ID, now, 60)})
	require.NoError(t, err)

	_, err = repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, park.ID, now, 60)})
	assert.ErrorIs(t, err, repository.ErrActiveCheckinExists)
}

func TestCreateCheckins_AllOrNothing(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	ana := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	ben := testutil.NewTestVisitor(t, repo, user.ID, "Ben")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(ben.ID, park.ID, now, 60)})
	require.NoError(t, err)

	// Ben is taken, so the whole batch must fail and Ana must stay out.
	_, err = repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(ana.ID, park.ID, now, 60),
		newCheckin(ben.ID, park.ID, now, 60),
	})
	require.ErrorIs(t, err, repository.ErrActiveCheckinExists)

	active, err := repo.ActiveCheckinsForVisitors(ctx, []int64{ana.ID})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCreateCheckins_AllowedAfterCheckout(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	created, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, park.ID, now, 60)})
	require.NoError(t, err)

	_, err = repo.CloseCheckins(ctx, []int64{created[0].ID}, now.Add(time.Minute))
	require.NoError(t, err)

	// Closed history does not block a new visit.
	_, err = repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, park.ID, now.Add(2*time.Minute), 60)})
	assert.NoError(t, err)
}

func TestCloseCheckins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	ana := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	ben := testutil.NewTestVisitor(t, repo, user.ID, "Ben")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	created, err := repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(ana.ID, park.ID, now, 60),
		newCheckin(ben.ID, park.ID, now, 60),
	})
	require.NoError(t, err)

	checkoutAt := now.Add(30 * time.Minute)
	closed, err := repo.CloseCheckins(ctx, []int64{created[0].ID, created[1].ID}, checkoutAt)

	require.NoError(t, err)
	require.Len(t, closed, 2)
	for _, c := range closed {
		require.NotNil(t, c.ActualCheckoutAt)
		assert.WithinDuration(t, checkoutAt, *c.ActualCheckoutAt, time.Second)
	}
}

func TestCloseCheckins_AlreadyClosed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	created, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, park.ID, now, 60)})
	require.NoError(t, err)

	_, err = repo.CloseCheckins(ctx, []int64{created[0].ID}, now)
	require.NoError(t, err)

	_, err = repo.CloseCheckins(ctx, []int64{created[0].ID}, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestActiveCheckinsForOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	carol := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	dave := testutil.NewTestUser(t, repo, "Dave", "dave@example.com")
	ana := testutil.NewTestVisitor(t, repo, carol.ID, "Ana")
	zoe := testutil.NewTestVisitor(t, repo, dave.ID, "Zoe")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(ana.ID, park.ID, now, 60),
		newCheckin(zoe.ID, park.ID, now, 60),
	})
	require.NoError(t, err)

	active, err := repo.ActiveCheckinsForOwner(ctx, carol.ID)

	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ana.ID, active[0].VisitorID)
	assert.Equal(t, "Ana", active[0].VisitorName)
}

func TestMostRecentLocationForOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	highPark := testutil.NewTestLocation(t, repo, "High Park")
	christie := testutil.NewTestLocation(t, repo, "Christie Pits Park")

	now := time.Now().UTC()
	first, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, highPark.ID, now.Add(-2*time.Hour), 60)})
	require.NoError(t, err)
	_, err = repo.CloseCheckins(ctx, []int64{first[0].ID}, now.Add(-time.Hour))
	require.NoError(t, err)

	second, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, christie.ID, now.Add(-30*time.Minute), 60)})
	require.NoError(t, err)
	_, err = repo.CloseCheckins(ctx, []int64{second[0].ID}, now)
	require.NoError(t, err)

	locationID, err := repo.MostRecentLocationForOwner(ctx, user.ID)

	require.NoError(t, err)
	assert.Equal(t, christie.ID, locationID)
}

func TestMostRecentLocationForOwner_NoHistory(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")

	_, err := repo.MostRecentLocationForOwner(ctx, user.ID)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExpireStaleCheckins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	ana := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	ben := testutil.NewTestVisitor(t, repo, user.ID, "Ben")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(ana.ID, park.ID, now.Add(-2*time.Hour), 60), // est checkout passed
		newCheckin(ben.ID, park.ID, now, 60),                   // still running
	})
	require.NoError(t, err)

	count, err := repo.ExpireStaleCheckins(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	active, err := repo.ActiveCheckinsForVisitors(ctx, []int64{ana.ID, ben.ID})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ben.ID, active[0].VisitorID)
}

func TestActiveRoster(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	zoe := testutil.NewTestVisitor(t, repo, user.ID, "Zoe")
	ana := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	christie := testutil.NewTestLocation(t, repo, "Christie Pits Park")
	highPark := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(zoe.ID, highPark.ID, now, 60),
		newCheckin(ana.ID, christie.ID, now, 60),
	})
	require.NoError(t, err)

	parks, err := repo.ActiveRoster(ctx)

	require.NoError(t, err)
	require.Len(t, parks, 2)
	// Parks sorted by name, visitors by name within each park.
	assert.Equal(t, "Christie Pits Park", parks[0].Name)
	require.Len(t, parks[0].Visitors, 1)
	assert.Equal(t, "Ana", parks[0].Visitors[0].Name)
	assert.Equal(t, "High Park", parks[1].Name)
	require.Len(t, parks[1].Visitors, 1)
	assert.Equal(t, "Zoe", parks[1].Visitors[0].Name)
}

func TestActiveRoster_ExcludesClosedAndSoftDeleted(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	ana := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	ben := testutil.NewTestVisitor(t, repo, user.ID, "Ben")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	created, err := repo.CreateCheckins(ctx, []repository.NewCheckin{
		newCheckin(ana.ID, park.ID, now, 60),
		newCheckin(ben.ID, park.ID, now, 60),
	})
	require.NoError(t, err)

	_, err = repo.CloseCheckins(ctx, []int64{created[0].ID}, now)
	require.NoError(t, err)
	require.NoError(t, repo.SoftDeleteVisitor(ctx, ben.ID, user.ID))

	parks, err := repo.ActiveRoster(ctx)

	require.NoError(t, err)
	assert.Empty(t, parks)
}

func TestSoftDeletedVisitorCanCheckInAgainAfterRecreate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "Carol", "carol@example.com")
	visitor := testutil.NewTestVisitor(t, repo, user.ID, "Ana")
	park := testutil.NewTestLocation(t, repo, "High Park")

	now := time.Now().UTC()
	_, err := repo.CreateCheckins(ctx, []repository.NewCheckin{newCheckin(visitor.ID, park.ID, now, 60)})
	require.NoError(t, err)

	// Deleting the visitor hides them, but the active checkin row remains
	// until the expiry job closes it.
	require.NoError(t, repo.SoftDeleteVisitor(ctx, visitor.ID, user.ID))

	visitors, err := repo.VisitorsByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, visitors)
}
