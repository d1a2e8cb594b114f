// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/services/token"
	"github.com/millwardesque/parkbench/internal/testutil"
)

func TestIssueAndVerify(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.TokenPurposeMagicLink, "carol@example.com")
	require.NoError(t, err)
	assert.Len(t, raw, 64) // 32 random bytes, hex encoded

	err = svc.Verify(ctx, models.TokenPurposeMagicLink, raw, "carol@example.com")
	assert.NoError(t, err)
}

func TestVerify_SingleUse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.TokenPurposeMagicLink, "carol@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, models.TokenPurposeMagicLink, raw, "carol@example.com"))

	err = svc.Verify(ctx, models.TokenPurposeMagicLink, raw, "carol@example.com")
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerify_UnknownToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)

	err := svc.Verify(context.Background(), models.TokenPurposeMagicLink, "deadbeef", "carol@example.com")

	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerify_WrongEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.TokenPurposeMagicLink, "carol@example.com")
	require.NoError(t, err)

	err = svc.Verify(ctx, models.TokenPurposeMagicLink, raw, "dave@example.com")
	assert.ErrorIs(t, err, token.ErrInvalid)

	// The failed attempt must not consume the token.
	err = svc.Verify(ctx, models.TokenPurposeMagicLink, raw, "carol@example.com")
	assert.NoError(t, err)
}

func TestVerify_WrongPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, models.TokenPurposeMagicLink, "carol@example.com")
	require.NoError(t, err)

	err = svc.Verify(ctx, models.TokenPurposeEmailVerify, raw, "carol@example.com")
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerify_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	raw := "rawtokenvalue"
	expired := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.CreateToken(ctx, models.TokenPurposeMagicLink, "carol@example.com", token.Hash(raw), expired))

	err := svc.Verify(ctx, models.TokenPurposeMagicLink, raw, "carol@example.com")
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestIssue_InvalidatesPreviousToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	first, err := svc.Issue(ctx, models.TokenPurposeMagicLink, "carol@example.com")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, models.TokenPurposeMagicLink, "carol@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Verify(ctx, models.TokenPurposeMagicLink, first, "carol@example.com"), token.ErrInvalid)
	assert.NoError(t, svc.Verify(ctx, models.TokenPurposeMagicLink, second, "carol@example.com"))
}
