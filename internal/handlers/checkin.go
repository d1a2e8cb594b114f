// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	authctx "github.com/millwardesque/parkbench/internal/auth"
	"github.com/millwardesque/parkbench/internal/services/checkin"
)

// CheckinHandler exposes the check-in/check-out operations and the live
// roster.
type CheckinHandler struct {
	engine *checkin.Engine
}

// NewCheckinHandler creates a new CheckinHandler instance.
func NewCheckinHandler(engine *checkin.Engine) *CheckinHandler {
	return &CheckinHandler{engine: engine}
}

// CheckIn handles POST /checkin: check selected visitors into a park.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	if err := c.Request().ParseForm(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}

	visitorIDs, err := parseIDList(c.Request().Form["visitor_ids"])
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visitor id")
	}

	locationID, err := strconv.ParseInt(c.FormValue("location_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location id")
	}

	duration := checkin.DefaultMassDurationMinutes
	if raw := c.FormValue("duration_minutes"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration")
		}
	}

	created, err := h.engine.CheckIn(c.Request().Context(), user.ID, visitorIDs, locationID, duration)
	if err != nil {
		return checkinErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"checkins": created})
}

// CheckOut handles POST /checkout: end selected active check-ins.
func (h *CheckinHandler) CheckOut(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	if err := c.Request().ParseForm(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}

	checkinIDs, err := parseIDList(c.Request().Form["checkin_ids"])
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid checkin id")
	}

	updated, err := h.engine.CheckOut(c.Request().Context(), user.ID, checkinIDs)
	if err != nil {
		return checkinErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"checkins": updated})
}

// CheckInAll handles POST /checkin-all: the one-tap "everyone to the park"
// shortcut.
func (h *CheckinHandler) CheckInAll(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	created, err := h.engine.CheckInAllVisitors(c.Request().Context(), user.ID)
	if err != nil {
		return checkinErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"checkins": created})
}

// CheckOutAll handles POST /checkout-all: end every active check-in the
// user's visitors have.
func (h *CheckinHandler) CheckOutAll(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	updated, err := h.engine.CheckOutAllVisitors(c.Request().Context(), user.ID)
	if err != nil {
		return checkinErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"checkins": updated})
}

// Roster handles GET /api/parks: parks with their currently checked-in
// visitors, served from the short-lived cache.
func (h *CheckinHandler) Roster(c echo.Context) error {
	parks, err := h.engine.Roster(c.Request().Context())
	if err != nil {
		return checkinErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"parks": parks})
}
