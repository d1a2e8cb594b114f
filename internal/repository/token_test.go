// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/testutil"
)

func TestCreateToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	err := repo.CreateToken(ctx, models.TokenPurposeMagicLink, "carol@example.com", "abc123hash", expiresAt)

	require.NoError(t, err)

	token, err := repo.TokenByHash(ctx, "abc123hash")
	require.NoError(t, err)
	assert.Equal(t, models.TokenPurposeMagicLink, token.Purpose)
	assert.Equal(t, "carol@example.com", token.Email)
	assert.Nil(t, token.UsedAt)
	assert.WithinDuration(t, expiresAt, token.ExpiresAt, time.Second)
}

func TestTokenByHash_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.TokenByHash(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeMagicLink, "carol@example.com", "abc123hash", now.Add(10*time.Minute)))
	token, err := repo.TokenByHash(ctx, "abc123hash")
	require.NoError(t, err)

	consumed, err := repo.ConsumeToken(ctx, token.ID, now)
	require.NoError(t, err)
	assert.True(t, consumed)

	// A second consume of the same token loses.
	consumed, err = repo.ConsumeToken(ctx, token.ID, now)
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestInvalidateTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeMagicLink, "carol@example.com", "hash1", now.Add(10*time.Minute)))
	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeEmailVerify, "carol@example.com", "hash2", now.Add(24*time.Hour)))

	require.NoError(t, repo.InvalidateTokens(ctx, models.TokenPurposeMagicLink, "carol@example.com", now))

	// Only the matching purpose is invalidated.
	magic, err := repo.TokenByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.NotNil(t, magic.UsedAt)

	verify, err := repo.TokenByHash(ctx, "hash2")
	require.NoError(t, err)
	assert.Nil(t, verify.UsedAt)
}

func TestDeleteExpiredTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeMagicLink, "carol@example.com", "expired", now.Add(-time.Minute)))
	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeMagicLink, "dave@example.com", "live", now.Add(10*time.Minute)))

	count, err := repo.DeleteExpiredTokens(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.TokenByHash(ctx, "expired")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.TokenByHash(ctx, "live")
	assert.NoError(t, err)
}
