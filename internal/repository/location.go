// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
)

const locationCols = `id, name, nickname, created_at, updated_at, deleted_at`

// Locations returns all parks, sorted by name.
func (r *Repository) Locations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	err := r.db.SelectContext(ctx, &locations,
		`SELECT `+locationCols+` FROM locations WHERE `+notDeleted+` ORDER BY name ASC`)
	if err != nil {
		return nil, wrapError(err)
	}
	return locations, nil
}

// LocationByID retrieves a park by its ID.
func (r *Repository) LocationByID(ctx context.Context, id int64) (*models.Location, error) {
	var location models.Location
	err := r.db.GetContext(ctx, &location,
		`SELECT `+locationCols+` FROM locations WHERE id = ? AND `+notDeleted, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &location, nil
}

// FirstLocationByName returns the alphabetically-first park. This is the
// fallback target for a mass check-in when the user has no checkin history.
func (r *Repository) FirstLocationByName(ctx context.Context) (*models.Location, error) {
	var location models.Location
	err := r.db.GetContext(ctx, &location,
		`SELECT `+locationCols+` FROM locations WHERE `+notDeleted+` ORDER BY name ASC LIMIT 1`)
	if err != nil {
		return nil, wrapError(err)
	}
	return &location, nil
}

// CreateLocation creates a park.
func (r *Repository) CreateLocation(ctx context.Context, name string, nickname *string) (*models.Location, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (name, nickname, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, nickname, now, now)
	if err != nil {
		return nil, wrapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var location models.Location
	if err := r.db.GetContext(ctx, &location,
		`SELECT `+locationCols+` FROM locations WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &location, nil
}

// SoftDeleteLocation stamps a park as deleted.
func (r *Repository) SoftDeleteLocation(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE locations SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+notDeleted,
		now, now, id)
	return wrapError(err)
}
