// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/millwardesque/parkbench/internal/models"
)

const userCols = `id, name, email, email_verified_at, created_at, updated_at, deleted_at`

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userCols+` FROM users WHERE id = ? AND `+notDeleted, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userCols+` FROM users WHERE email = ? AND `+notDeleted, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// CreateUserWithVisitors creates a user and their initial visitor profiles in
// one transaction. Registration either fully succeeds or leaves no trace.
func (r *Repository) CreateUserWithVisitors(ctx context.Context, name, email string, visitorNames []string) (*models.User, error) {
	now := time.Now().UTC()
	var userID int64

	err := r.RunInTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			name, email, now, now)
		if err != nil {
			return err
		}
		userID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		for _, visitorName := range visitorNames {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO visitors (name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				visitorName, userID, now, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return r.GetUserByID(ctx, userID)
}

// MarkEmailVerified stamps the user's email as verified.
func (r *Repository) MarkEmailVerified(ctx context.Context, userID int64, verifiedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified_at = ?, updated_at = ? WHERE id = ? AND `+notDeleted,
		verifiedAt, verifiedAt, userID)
	return wrapError(err)
}

// SoftDeleteUser stamps a user as deleted.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+notDeleted,
		now, now, id)
	return wrapError(err)
}
