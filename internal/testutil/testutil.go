// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/millwardesque/parkbench/internal/database"
	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/repository"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a test user without visitors.
func NewTestUser(t *testing.T, repo *repository.Repository, name, email string) *models.User {
	t.Helper()
	user, err := repo.CreateUserWithVisitors(context.Background(), name, email, nil)
	require.NoError(t, err)
	return user
}

// NewTestVisitor creates a visitor owned by the given user.
func NewTestVisitor(t *testing.T, repo *repository.Repository, ownerID int64, name string) *models.Visitor {
	t.Helper()
	visitor, err := repo.CreateVisitor(context.Background(), ownerID, name)
	require.NoError(t, err)
	return visitor
}

// NewTestLocation creates a park.
func NewTestLocation(t *testing.T, repo *repository.Repository, name string) *models.Location {
	t.Helper()
	location, err := repo.CreateLocation(context.Background(), name, nil)
	require.NoError(t, err)
	return location
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
