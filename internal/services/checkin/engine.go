// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package checkin implements the check-in/check-out state engine. A visitor
// moves AVAILABLE -> CHECKED_IN -> AVAILABLE and nothing else: no pause, no
// transfer. Checking out never deletes history, it stamps the checkout time.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/millwardesque/parkbench/internal/events"
	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/roster"
)

const (
	// MinDurationMinutes is the shortest accepted visit length.
	MinDurationMinutes = 15

	// DefaultMassDurationMinutes is the visit length used by the
	// check-in-everyone shortcut.
	DefaultMassDurationMinutes = 120
)

// Engine validates ownership and availability, performs the state
// transitions, and keeps the roster cache and broadcaster in sync with
// every write.
type Engine struct {
	repo        *repository.Repository
	cache       *roster.Cache
	broadcaster *events.Broadcaster
	now         func() time.Time
}

// NewEngine creates the engine.
func NewEngine(repo *repository.Repository, cache *roster.Cache, broadcaster *events.Broadcaster) *Engine {
	return &Engine{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// CheckIn checks the given visitors into one location for durationMinutes.
// All visitors must belong to userID and be available; the batch is created
// all-or-nothing.
func (e *Engine) CheckIn(ctx context.Context, userID int64, visitorIDs []int64, locationID int64, durationMinutes int) ([]models.Checkin, error) {
	visitorIDs = lo.Uniq(visitorIDs)
	if len(visitorIDs) == 0 {
		return nil, nil
	}
	if durationMinutes < MinDurationMinutes {
		return nil, newError(ErrUnknown, fmt.Sprintf("duration must be at least %d minutes", MinDurationMinutes))
	}

	visitors, err := e.repo.VisitorsByIDsForOwner(ctx, visitorIDs, userID)
	if err != nil {
		return nil, e.storageError("checkin_load_visitors", err)
	}
	if len(visitors) != len(visitorIDs) {
		return nil, newError(ErrUnauthorized, "One or more selected visitors don't belong to you")
	}

	if _, err := e.repo.LocationByID(ctx, locationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrLocationNotFound, "Selected park not found")
		}
		return nil, e.storageError("checkin_load_location", err)
	}

	active, err := e.repo.ActiveCheckinsForVisitors(ctx, visitorIDs)
	if err != nil {
		return nil, e.storageError("checkin_load_active", err)
	}
	if len(active) > 0 {
		return nil, alreadyCheckedIn(active)
	}

	now := e.now().UTC()
	items := lo.Map(visitorIDs, func(visitorID int64, _ int) repository.NewCheckin {
		return repository.NewCheckin{
			VisitorID:     visitorID,
			LocationID:    locationID,
			CheckinAt:     now,
			EstCheckoutAt: now.Add(time.Duration(durationMinutes) * time.Minute),
		}
	})

	created, err := e.createCheckins(ctx, items)
	if err != nil {
		return nil, err
	}

	slog.Info("checkin_created", "user_id", userID, "location_id", locationID, "count", len(created))
	e.rosterChanged(ctx)
	return created, nil
}

// CheckOut ends the given checkins. Every checkin must be active and belong
// to a visitor owned by userID; the batch is closed all-or-nothing with a
// single checkout timestamp.
func (e *Engine) CheckOut(ctx context.Context, userID int64, checkinIDs []int64) ([]models.Checkin, error) {
	checkinIDs = lo.Uniq(checkinIDs)
	if len(checkinIDs) == 0 {
		return nil, nil
	}

	active, err := e.repo.ActiveCheckinsByIDsForOwner(ctx, checkinIDs, userID)
	if err != nil {
		return nil, e.storageError("checkout_load_active", err)
	}
	if len(active) != len(checkinIDs) {
		return nil, newError(ErrUnauthorized, "One or more check-ins not found or not owned by you")
	}

	updated, err := e.repo.CloseCheckins(ctx, checkinIDs, e.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent checkout claimed part of the batch after validation.
			return nil, newError(ErrUnauthorized, "One or more check-ins not found or not owned by you")
		}
		return nil, e.storageError("checkout_close", err)
	}

	slog.Info("checkout_completed", "user_id", userID, "count", len(updated))
	e.rosterChanged(ctx)
	return updated, nil
}

// CheckInAllVisitors checks every available visitor of the user into one
// location: the user's most recently used park, or the alphabetically-first
// park when there is no history. Visitors already checked in are skipped.
// Returns an empty result when no visitor is available.
func (e *Engine) CheckInAllVisitors(ctx context.Context, userID int64) ([]models.Checkin, error) {
	visitors, err := e.repo.VisitorsByOwner(ctx, userID)
	if err != nil {
		return nil, e.storageError("mass_checkin_load_visitors", err)
	}
	if len(visitors) == 0 {
		return nil, nil
	}

	visitorIDs := lo.Map(visitors, func(v models.Visitor, _ int) int64 { return v.ID })
	active, err := e.repo.ActiveCheckinsForVisitors(ctx, visitorIDs)
	if err != nil {
		return nil, e.storageError("mass_checkin_load_active", err)
	}

	checkedIn := lo.SliceToMap(active, func(c repository.ActiveCheckin) (int64, struct{}) {
		return c.VisitorID, struct{}{}
	})
	available := lo.Filter(visitorIDs, func(id int64, _ int) bool {
		_, taken := checkedIn[id]
		return !taken
	})
	if len(available) == 0 {
		return nil, nil
	}

	locationID, err := e.targetLocation(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	estCheckoutAt := now.Add(DefaultMassDurationMinutes * time.Minute)
	items := lo.Map(available, func(visitorID int64, _ int) repository.NewCheckin {
		return repository.NewCheckin{
			VisitorID:     visitorID,
			LocationID:    locationID,
			CheckinAt:     now,
			EstCheckoutAt: estCheckoutAt,
		}
	})

	created, err := e.createCheckins(ctx, items)
	if err != nil {
		return nil, err
	}

	slog.Info("mass_checkin_created", "user_id", userID, "location_id", locationID, "count", len(created))
	e.rosterChanged(ctx)
	return created, nil
}

// CheckOutAllVisitors ends every active checkin under the user's visitors.
// Returns an empty result when none are active.
func (e *Engine) CheckOutAllVisitors(ctx context.Context, userID int64) ([]models.Checkin, error) {
	active, err := e.repo.ActiveCheckinsForOwner(ctx, userID)
	if err != nil {
		return nil, e.storageError("mass_checkout_load_active", err)
	}
	if len(active) == 0 {
		return nil, nil
	}

	checkinIDs := lo.Map(active, func(c repository.ActiveCheckin, _ int) int64 { return c.ID })
	updated, err := e.repo.CloseCheckins(ctx, checkinIDs, e.now().UTC())
	if err != nil {
		return nil, e.storageError("mass_checkout_close", err)
	}

	slog.Info("mass_checkout_completed", "user_id", userID, "count", len(updated))
	e.rosterChanged(ctx)
	return updated, nil
}

// Roster returns the cached live roster.
func (e *Engine) Roster(ctx context.Context) ([]models.ParkWithVisitors, error) {
	return e.cache.Get(ctx)
}

// ExpireStale closes every active checkin whose estimated checkout time has
// passed. Run by the maintenance loop; est_checkout_at is the single source
// of truth for expiry.
func (e *Engine) ExpireStale(ctx context.Context) (int64, error) {
	count, err := e.repo.ExpireStaleCheckins(ctx, e.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire stale checkins: %w", err)
	}
	if count > 0 {
		slog.Info("stale_checkins_expired", "count", count)
		e.rosterChanged(ctx)
	}
	return count, nil
}

// createCheckins runs the all-or-nothing insert and translates the unique
// index conflict that closes the validate-then-act race.
func (e *Engine) createCheckins(ctx context.Context, items []repository.NewCheckin) ([]models.Checkin, error) {
	created, err := e.repo.CreateCheckins(ctx, items)
	if err != nil {
		if errors.Is(err, repository.ErrActiveCheckinExists) {
			visitorIDs := lo.Map(items, func(item repository.NewCheckin, _ int) int64 { return item.VisitorID })
			if active, lookupErr := e.repo.ActiveCheckinsForVisitors(ctx, visitorIDs); lookupErr == nil && len(active) > 0 {
				return nil, alreadyCheckedIn(active)
			}
			return nil, newError(ErrAlreadyCheckedIn, "A visitor is already checked in somewhere")
		}
		return nil, e.storageError("checkin_create", err)
	}
	return created, nil
}

// targetLocation picks where a mass check-in goes.
func (e *Engine) targetLocation(ctx context.Context, userID int64) (int64, error) {
	locationID, err := e.repo.MostRecentLocationForOwner(ctx, userID)
	if err == nil {
		return locationID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, e.storageError("mass_checkin_recent_location", err)
	}

	first, err := e.repo.FirstLocationByName(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// No parks exist at all. That's a deployment problem, not a
			// business outcome, so it surfaces as unknown.
			return 0, newError(ErrUnknown, "No locations available for check-in")
		}
		return 0, e.storageError("mass_checkin_first_location", err)
	}
	return first.ID, nil
}

// rosterChanged invalidates the cache and broadcasts the fresh roster.
// Correctness favors an extra recompute over stale data.
func (e *Engine) rosterChanged(ctx context.Context) {
	e.cache.Invalidate()

	parks, err := e.cache.Get(ctx)
	if err != nil {
		slog.Error("roster_refresh_failed", "error", err)
		return
	}
	e.broadcaster.Publish(events.RosterChanged, parks)
}

// alreadyCheckedIn names the offending visitors, with is/are agreement.
func alreadyCheckedIn(active []repository.ActiveCheckin) *Error {
	names := lo.Map(active, func(c repository.ActiveCheckin, _ int) string { return c.VisitorName })
	verb := "is"
	if len(names) > 1 {
		verb = "are"
	}
	return newError(ErrAlreadyCheckedIn,
		fmt.Sprintf("%s %s already checked in somewhere", strings.Join(names, ", "), verb))
}

func (e *Engine) storageError(op string, err error) *Error {
	slog.Error(op, "error", err)
	return newError(ErrUnknown, "An unexpected error occurred")
}
