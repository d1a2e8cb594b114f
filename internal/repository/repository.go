// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository is the persistence adapter over SQLite.
//
// Soft-delete policy: no method in this package removes rows. Delete
// methods stamp deleted_at, and every default read carries the notDeleted
// guard so stamped rows never surface. The only way around the guard is
// PurgeSoftDeleted, the explicit retention sweep.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vinovest/sqlx"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// ErrActiveCheckinExists is returned when an insert would give a visitor a
// second active checkin. The partial unique index ux_checkins_active_visitor
// raises this even when two requests race past the read-side validation.
var ErrActiveCheckinExists = errors.New("visitor already has an active checkin")

// notDeleted is the soft-delete guard. Every default read appends it (with
// the proper table alias) to its WHERE clause.
const notDeleted = "deleted_at IS NULL"

// Repository wraps the sqlx handle for database operations.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying sqlx handle for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// RunInTx executes fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise, so a batch of creates and updates is
// applied all-or-nothing.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// wrapError converts driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isActiveCheckinConflict(err) {
		return ErrActiveCheckinExists
	}
	return err
}

// isActiveCheckinConflict matches violations of ux_checkins_active_visitor.
func isActiveCheckinConflict(err error) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), "checkins.visitor_id")
}

// inQuery expands an IN clause for the given ids and rebinds it for SQLite.
func (r *Repository) inQuery(query string, args ...any) (string, []any, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("expand IN clause: %w", err)
	}
	return r.db.Rebind(q), expanded, nil
}
