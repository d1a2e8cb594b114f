// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token manages the lifecycle of expiring, single-use secrets:
// magic-link sign-in tokens and email verification tokens. Only SHA-256
// hashes are stored; the raw token exists once, in the outbound link.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/repository"
)

// ErrInvalid is returned for every verification failure: unknown token,
// subject mismatch, expired, or already used. The causes are deliberately
// not distinguished so a caller cannot probe which one applied.
var ErrInvalid = errors.New("invalid or expired token")

const (
	// rawTokenBytes is the entropy of a raw token before hex encoding.
	rawTokenBytes = 32

	// MagicLinkTTL bounds how long a sign-in link stays valid.
	MagicLinkTTL = 10 * time.Minute

	// EmailVerifyTTL bounds how long an email verification link stays valid.
	EmailVerifyTTL = 24 * time.Hour
)

// Service issues and verifies tokens.
type Service struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewService creates a token service.
func NewService(repo *repository.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Issue invalidates any live token for (purpose, email), stores the hash of
// a fresh random token, and returns the raw token for embedding in a link.
// At most one live token exists per subject at any time.
func (s *Service) Issue(ctx context.Context, purpose, email string) (string, error) {
	now := s.now().UTC()

	if err := s.repo.InvalidateTokens(ctx, purpose, email, now); err != nil {
		return "", fmt.Errorf("invalidate previous tokens: %w", err)
	}

	raw, err := generate()
	if err != nil {
		return "", err
	}

	if err := s.repo.CreateToken(ctx, purpose, email, Hash(raw), now.Add(ttlFor(purpose))); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return raw, nil
}

// Verify checks a raw token against the stored hash and consumes it. The
// consume is atomic on used_at, so of two racing calls with the same raw
// token exactly one succeeds. All failures collapse to ErrInvalid.
func (s *Service) Verify(ctx context.Context, purpose, rawToken, email string) error {
	record, err := s.repo.TokenByHash(ctx, Hash(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalid
		}
		return fmt.Errorf("look up token: %w", err)
	}

	if record.Purpose != purpose || record.Email != email {
		return ErrInvalid
	}

	now := s.now().UTC()
	if !now.Before(record.ExpiresAt) {
		return ErrInvalid
	}
	if record.UsedAt != nil {
		return ErrInvalid
	}

	consumed, err := s.repo.ConsumeToken(ctx, record.ID, now)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !consumed {
		// Lost the race against another verification of the same token.
		return ErrInvalid
	}

	return nil
}

// Hash computes the hex-encoded SHA-256 of a raw token.
func Hash(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

func generate() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func ttlFor(purpose string) time.Duration {
	if purpose == models.TokenPurposeEmailVerify {
		return EmailVerifyTTL
	}
	return MagicLinkTTL
}
