// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
)

const tokenCols = `id, purpose, email, token_hash, expires_at, used_at, created_at, deleted_at`

// CreateToken stores a hashed token with its expiry.
func (r *Repository) CreateToken(ctx context.Context, purpose, email, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (purpose, email, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		purpose, email, tokenHash, expiresAt, time.Now().UTC())
	return wrapError(err)
}

// TokenByHash retrieves a token by its hash.
func (r *Repository) TokenByHash(ctx context.Context, tokenHash string) (*models.Token, error) {
	var token models.Token
	err := r.db.GetContext(ctx, &token,
		`SELECT `+tokenCols+` FROM tokens WHERE token_hash = ? AND `+notDeleted, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// InvalidateTokens marks every unused token for the subject as used. Issuing
// a fresh token always invalidates its predecessors first, so at most one
// live token exists per (purpose, email).
func (r *Repository) InvalidateTokens(ctx context.Context, purpose, email string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET used_at = ? WHERE purpose = ? AND email = ? AND used_at IS NULL AND `+notDeleted,
		usedAt, purpose, email)
	return wrapError(err)
}

// ConsumeToken marks a token as used. The used_at IS NULL guard makes the
// mark-used atomic: of two racing verifications, exactly one observes
// consumed = true.
func (r *Repository) ConsumeToken(ctx context.Context, id int64, usedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET used_at = ? WHERE id = ? AND used_at IS NULL AND `+notDeleted,
		usedAt, id)
	if err != nil {
		return false, wrapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteExpiredTokens hard-deletes tokens past their expiry. Expired tokens
// carry no audit value, so this skips the soft-delete policy.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.RowsAffected()
}
