// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	authctx "github.com/millwardesque/parkbench/internal/auth"
	"github.com/millwardesque/parkbench/internal/repository"
)

// VisitorsHandler manages a user's visitor profiles.
type VisitorsHandler struct {
	repo *repository.Repository
}

// NewVisitorsHandler creates a new VisitorsHandler instance.
func NewVisitorsHandler(repo *repository.Repository) *VisitorsHandler {
	return &VisitorsHandler{repo: repo}
}

// List handles GET /visitors.
func (h *VisitorsHandler) List(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	visitors, err := h.repo.VisitorsByOwner(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load visitors")
	}
	return c.JSON(http.StatusOK, map[string]any{"visitors": visitors})
}

// Create handles POST /visitors.
func (h *VisitorsHandler) Create(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_input", "Visitor name is required"))
	}

	visitor, err := h.repo.CreateVisitor(c.Request().Context(), user.ID, name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create visitor")
	}
	return c.JSON(http.StatusCreated, map[string]any{"visitor": visitor})
}

// Delete handles DELETE /visitors/:id. The visitor is soft-deleted: it
// drops out of every listing but its check-in history stays intact.
func (h *VisitorsHandler) Delete(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visitor id")
	}

	if err := h.repo.SoftDeleteVisitor(c.Request().Context(), id, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorBody("visitor_not_found", "Visitor not found"))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete visitor")
	}
	return c.NoContent(http.StatusNoContent)
}
