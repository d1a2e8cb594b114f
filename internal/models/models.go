// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the persistent entities of Parkbench.
//
// Every entity carries a DeletedAt timestamp. Deletes are soft: a delete
// stamps DeletedAt and default reads in the repository exclude stamped rows.
package models

import "time"

// User is an account holder. Users own visitors and authenticate via
// emailed magic links; there is no password.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID              int64      `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`
}

// Verified reports whether the user has confirmed their email address.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// Visitor is a dependent profile (e.g. a child) owned by exactly one user.
// Visitors are the subject of check-ins.
type Visitor struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	OwnerID   int64      `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// Location is a park visitors can check into. Locations are global and
// not owned by any user.
type Location struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Nickname  *string    `db:"nickname" json:"nickname"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// Checkin records a visitor being present at a location for a bounded time.
//
// A checkin is active while ActualCheckoutAt is null. At most one active,
// non-deleted checkin may exist per visitor; the schema enforces this with
// a partial unique index on (visitor_id).
type Checkin struct { //nolint:govet // fieldalignment: readability over optimization
	ID               int64      `db:"id" json:"id"`
	VisitorID        int64      `db:"visitor_id" json:"visitor_id"`
	LocationID       int64      `db:"location_id" json:"location_id"`
	CheckinAt        time.Time  `db:"checkin_at" json:"checkin_at"`
	EstCheckoutAt    time.Time  `db:"est_checkout_at" json:"est_checkout_at"`
	ActualCheckoutAt *time.Time `db:"actual_checkout_at" json:"actual_checkout_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"-"`
}

// Active reports whether the visitor is still checked in.
func (c *Checkin) Active() bool {
	return c.ActualCheckoutAt == nil && c.DeletedAt == nil
}

// RosterVisitor is a visitor together with their active checkin, as shown
// on the live roster.
type RosterVisitor struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Checkin Checkin `json:"checkin"`
}

// ParkWithVisitors is one entry of the live roster: a location and the
// visitors currently checked in there, sorted by visitor name.
type ParkWithVisitors struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Visitors []RosterVisitor `json:"visitors"`
}
