// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP glue: it parses form input, calls into
// the services, and maps their results to responses. No business rules live
// here.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/millwardesque/parkbench/internal/repository"
)

// Handlers contains the basic HTTP handlers.
type Handlers struct {
	repo *repository.Repository
}

// New creates a new Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Locations returns all parks, sorted by name, for the check-in form.
func (h *Handlers) Locations(c echo.Context) error {
	locations, err := h.repo.Locations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load parks")
	}
	return c.JSON(http.StatusOK, map[string]any{"locations": locations})
}

// parseIDList parses a repeated form field of numeric ids.
func parseIDList(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, value := range values {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
