// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
)

const visitorCols = `id, name, owner_id, created_at, updated_at, deleted_at`

// VisitorsByOwner returns all of a user's visitors, sorted by name.
func (r *Repository) VisitorsByOwner(ctx context.Context, ownerID int64) ([]models.Visitor, error) {
	var visitors []models.Visitor
	err := r.db.SelectContext(ctx, &visitors,
		`SELECT `+visitorCols+` FROM visitors WHERE owner_id = ? AND `+notDeleted+` ORDER BY name ASC`,
		ownerID)
	if err != nil {
		return nil, wrapError(err)
	}
	return visitors, nil
}

// VisitorsByIDsForOwner returns the subset of the given visitors that exist
// and belong to ownerID. Callers compare the result count against the
// requested count to detect unknown or foreign visitors.
func (r *Repository) VisitorsByIDsForOwner(ctx context.Context, ids []int64, ownerID int64) ([]models.Visitor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := r.inQuery(
		`SELECT `+visitorCols+` FROM visitors WHERE id IN (?) AND owner_id = ? AND `+notDeleted,
		ids, ownerID)
	if err != nil {
		return nil, err
	}

	var visitors []models.Visitor
	if err := r.db.SelectContext(ctx, &visitors, query, args...); err != nil {
		return nil, wrapError(err)
	}
	return visitors, nil
}

// CreateVisitor creates a visitor profile for the given owner.
func (r *Repository) CreateVisitor(ctx context.Context, ownerID int64, name string) (*models.Visitor, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO visitors (name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, ownerID, now, now)
	if err != nil {
		return nil, wrapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var visitor models.Visitor
	if err := r.db.GetContext(ctx, &visitor,
		`SELECT `+visitorCols+` FROM visitors WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &visitor, nil
}

// SoftDeleteVisitor stamps a visitor as deleted. The owner scope means a user
// can only delete their own visitors.
func (r *Repository) SoftDeleteVisitor(ctx context.Context, id, ownerID int64) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE visitors SET deleted_at = ?, updated_at = ? WHERE id = ? AND owner_id = ? AND `+notDeleted,
		now, now, id, ownerID)
	if err != nil {
		return wrapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
