// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/millwardesque/parkbench/internal/services/checkin"
)

// checkinErrorResponse maps an engine error to its HTTP response. The
// engine's typed errors are expected business outcomes; anything else is a
// 500 with no internal detail.
func checkinErrorResponse(c echo.Context, err error) error {
	var engineErr *checkin.Error
	if !errors.As(err, &engineErr) {
		return c.JSON(http.StatusInternalServerError, errorBody("unknown", "An unexpected error occurred"))
	}

	status := http.StatusInternalServerError
	switch engineErr.Type {
	case checkin.ErrUnauthorized:
		status = http.StatusForbidden
	case checkin.ErrVisitorNotFound, checkin.ErrLocationNotFound:
		status = http.StatusNotFound
	case checkin.ErrAlreadyCheckedIn:
		status = http.StatusBadRequest
	case checkin.ErrUnknown:
		status = http.StatusInternalServerError
	}

	return c.JSON(status, errorBody(string(engineErr.Type), engineErr.Message))
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
}
