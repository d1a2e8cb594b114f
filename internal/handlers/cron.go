// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/millwardesque/parkbench/internal/cron"
	"github.com/millwardesque/parkbench/internal/repository"
)

// CronHandler reports on the maintenance jobs.
type CronHandler struct {
	repo *repository.Repository
}

// NewCronHandler creates a new CronHandler instance.
func NewCronHandler(repo *repository.Repository) *CronHandler {
	return &CronHandler{repo: repo}
}

// Status handles GET /admin/cron: the last completion time of each job, for
// checking that the maintenance loop is alive.
func (h *CronHandler) Status(c echo.Context) error {
	jobs := []string{
		cron.JobExpireStaleCheckins,
		cron.JobPruneExpiredTokens,
		cron.JobPurgeSoftDeletes,
	}

	status := make(map[string]any, len(jobs))
	for _, name := range jobs {
		run, err := h.repo.CronJobRun(c.Request().Context(), name)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				status[name] = nil
				continue
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job status")
		}
		status[name] = run.LastRunAt
	}

	return c.JSON(http.StatusOK, map[string]any{"jobs": status})
}
