// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/millwardesque/parkbench/internal/models"
)

const checkinCols = `id, visitor_id, location_id, checkin_at, est_checkout_at, actual_checkout_at, created_at, updated_at, deleted_at`

// NewCheckin describes one checkin row to create.
type NewCheckin struct {
	VisitorID     int64
	LocationID    int64
	CheckinAt     time.Time
	EstCheckoutAt time.Time
}

// ActiveCheckin is an active checkin joined with its visitor's name, for
// error messages and the roster.
type ActiveCheckin struct {
	models.Checkin
	VisitorName string `db:"visitor_name"`
}

// ActiveCheckinsForVisitors returns the active checkins among the given
// visitors. Under the one-active-checkin invariant there is at most one row
// per visitor.
func (r *Repository) ActiveCheckinsForVisitors(ctx context.Context, visitorIDs []int64) ([]ActiveCheckin, error) {
	if len(visitorIDs) == 0 {
		return nil, nil
	}

	query, args, err := r.inQuery(`
		SELECT c.id, c.visitor_id, c.location_id, c.checkin_at, c.est_checkout_at,
		       c.actual_checkout_at, c.created_at, c.updated_at, c.deleted_at,
		       v.name AS visitor_name
		FROM checkins c
		JOIN visitors v ON v.id = c.visitor_id AND v.`+notDeleted+`
		WHERE c.visitor_id IN (?) AND c.actual_checkout_at IS NULL AND c.`+notDeleted,
		visitorIDs)
	if err != nil {
		return nil, err
	}

	var checkins []ActiveCheckin
	if err := r.db.SelectContext(ctx, &checkins, query, args...); err != nil {
		return nil, wrapError(err)
	}
	return checkins, nil
}

// ActiveCheckinsForOwner returns all active checkins under the user's
// visitors.
func (r *Repository) ActiveCheckinsForOwner(ctx context.Context, ownerID int64) ([]ActiveCheckin, error) {
	var checkins []ActiveCheckin
	err := r.db.SelectContext(ctx, &checkins, `
		SELECT c.id, c.visitor_id, c.location_id, c.checkin_at, c.est_checkout_at,
		       c.actual_checkout_at, c.created_at, c.updated_at, c.deleted_at,
		       v.name AS visitor_name
		FROM checkins c
		JOIN visitors v ON v.id = c.visitor_id AND v.`+notDeleted+`
		WHERE v.owner_id = ? AND c.actual_checkout_at IS NULL AND c.`+notDeleted,
		ownerID)
	if err != nil {
		return nil, wrapError(err)
	}
	return checkins, nil
}

// ActiveCheckinsByIDsForOwner returns the subset of the given checkins that
// are active and belong to visitors owned by ownerID. A count mismatch with
// the request tells the caller some ids are unknown, closed, or foreign.
func (r *Repository) ActiveCheckinsByIDsForOwner(ctx context.Context, checkinIDs []int64, ownerID int64) ([]ActiveCheckin, error) {
	if len(checkinIDs) == 0 {
		return nil, nil
	}

	query, args, err := r.inQuery(`
		SELECT c.id, c.visitor_id, c.location_id, c.checkin_at, c.est_checkout_at,
		       c.actual_checkout_at, c.created_at, c.updated_at, c.deleted_at,
		       v.name AS visitor_name
		FROM checkins c
		JOIN visitors v ON v.id = c.visitor_id AND v.`+notDeleted+`
		WHERE c.id IN (?) AND v.owner_id = ? AND c.actual_checkout_at IS NULL AND c.`+notDeleted,
		checkinIDs, ownerID)
	if err != nil {
		return nil, err
	}

	var checkins []ActiveCheckin
	if err := r.db.SelectContext(ctx, &checkins, query, args...); err != nil {
		return nil, wrapError(err)
	}
	return checkins, nil
}

// CreateCheckins inserts one checkin row per item, all-or-nothing. The
// partial unique index on active checkins turns a racing double check-in
// into ErrActiveCheckinExists and rolls back the whole batch, so a mass
// check-in is never partially applied.
func (r *Repository) CreateCheckins(ctx context.Context, items []NewCheckin) ([]models.Checkin, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(items))
	err := r.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for _, item := range items {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO checkins (visitor_id, location_id, checkin_at, est_checkout_at, actual_checkout_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, NULL, ?, ?)`,
				item.VisitorID, item.LocationID, item.CheckinAt, item.EstCheckoutAt, now, now)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return r.checkinsByIDs(ctx, ids)
}

// CloseCheckins stamps actual_checkout_at on all given checkins with a single
// timestamp. The update only matches rows that are still active; a count
// mismatch rolls the batch back and reports ErrNotFound, which closes the
// race against a concurrent checkout of the same rows.
func (r *Repository) CloseCheckins(ctx context.Context, checkinIDs []int64, checkoutAt time.Time) ([]models.Checkin, error) {
	if len(checkinIDs) == 0 {
		return nil, nil
	}

	err := r.RunInTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := r.inQuery(`
			UPDATE checkins SET actual_checkout_at = ?, updated_at = ?
			WHERE id IN (?) AND actual_checkout_at IS NULL AND `+notDeleted,
			checkoutAt, checkoutAt, checkinIDs)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != int64(len(checkinIDs)) {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return r.checkinsByIDs(ctx, checkinIDs)
}

// MostRecentLocationForOwner returns the location of the user's most recent
// checkin, active or not. ErrNotFound when the user has no checkin history.
func (r *Repository) MostRecentLocationForOwner(ctx context.Context, ownerID int64) (int64, error) {
	var locationID int64
	err := r.db.GetContext(ctx, &locationID, `
		SELECT c.location_id
		FROM checkins c
		JOIN visitors v ON v.id = c.visitor_id
		WHERE v.owner_id = ? AND c.`+notDeleted+`
		ORDER BY c.created_at DESC, c.id DESC LIMIT 1`,
		ownerID)
	if err != nil {
		return 0, wrapError(err)
	}
	return locationID, nil
}

// ExpireStaleCheckins closes every active checkin whose estimated checkout
// time has passed. Returns the number of rows closed.
func (r *Repository) ExpireStaleCheckins(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkins SET actual_checkout_at = ?, updated_at = ?
		WHERE est_checkout_at < ? AND actual_checkout_at IS NULL AND `+notDeleted,
		now, now, now)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.RowsAffected()
}

// ActiveRoster computes the live roster: every park with at least one active
// checkin, parks sorted by name and each park's visitors sorted by name.
func (r *Repository) ActiveRoster(ctx context.Context) ([]models.ParkWithVisitors, error) {
	type rosterRow struct {
		LocationID   int64      `db:"roster_location_id"`
		LocationName string     `db:"roster_location_name"`
		VisitorName  string     `db:"visitor_name"`
		ID           int64      `db:"id"`
		VisitorID    int64      `db:"visitor_id"`
		CheckinLocID int64      `db:"location_id"`
		CheckinAt    time.Time  `db:"checkin_at"`
		EstCheckout  time.Time  `db:"est_checkout_at"`
		ActCheckout  *time.Time `db:"actual_checkout_at"`
		CreatedAt    time.Time  `db:"created_at"`
		UpdatedAt    time.Time  `db:"updated_at"`
	}

	var rows []rosterRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT l.id AS roster_location_id, l.name AS roster_location_name,
		       v.name AS visitor_name,
		       c.id, c.visitor_id, c.location_id, c.checkin_at, c.est_checkout_at,
		       c.actual_checkout_at, c.created_at, c.updated_at
		FROM checkins c
		JOIN visitors v ON v.id = c.visitor_id AND v.`+notDeleted+`
		JOIN locations l ON l.id = c.location_id AND l.`+notDeleted+`
		WHERE c.actual_checkout_at IS NULL AND c.`+notDeleted+`
		ORDER BY l.name ASC, v.name ASC`)
	if err != nil {
		return nil, wrapError(err)
	}

	parks := make([]models.ParkWithVisitors, 0)
	for _, row := range rows {
		visitor := models.RosterVisitor{
			ID:   row.VisitorID,
			Name: row.VisitorName,
			Checkin: models.Checkin{
				ID:               row.ID,
				VisitorID:        row.VisitorID,
				LocationID:       row.CheckinLocID,
				CheckinAt:        row.CheckinAt,
				EstCheckoutAt:    row.EstCheckout,
				ActualCheckoutAt: row.ActCheckout,
				CreatedAt:        row.CreatedAt,
				UpdatedAt:        row.UpdatedAt,
			},
		}

		if n := len(parks); n > 0 && parks[n-1].ID == row.LocationID {
			parks[n-1].Visitors = append(parks[n-1].Visitors, visitor)
			continue
		}
		parks = append(parks, models.ParkWithVisitors{
			ID:       row.LocationID,
			Name:     row.LocationName,
			Visitors: []models.RosterVisitor{visitor},
		})
	}
	return parks, nil
}

func (r *Repository) checkinsByIDs(ctx context.Context, ids []int64) ([]models.Checkin, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := r.inQuery(
		`SELECT `+checkinCols+` FROM checkins WHERE id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, err
	}

	var checkins []models.Checkin
	if err := r.db.SelectContext(ctx, &checkins, query, args...); err != nil {
		return nil, wrapError(err)
	}
	return checkins, nil
}
