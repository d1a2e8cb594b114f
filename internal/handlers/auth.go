// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	authctx "github.com/millwardesque/parkbench/internal/auth"
	authsvc "github.com/millwardesque/parkbench/internal/services/auth"
	"github.com/millwardesque/parkbench/internal/services/session"
)

// AuthHandler exposes registration, magic-link sign-in, and email
// verification.
type AuthHandler struct {
	auth     *authsvc.Service
	sessions *session.Manager
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(auth *authsvc.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}

	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))
	if name == "" || email == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_input", "Name and email are required"))
	}

	visitorNames := lo.Filter(
		lo.Map(c.Request().Form["visitor_names"], func(n string, _ int) string { return strings.TrimSpace(n) }),
		func(n string, _ int) bool { return n != "" })

	user, err := h.auth.Register(c.Request().Context(), name, email, visitorNames)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, errorBody("invalid_input", "Please enter a valid email address"))
		case errors.Is(err, authsvc.ErrUserExists):
			return c.JSON(http.StatusConflict, errorBody("user_exists", "An account with this email already exists"))
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
		}
	}

	if err := h.sessions.SetUser(c, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session failed")
	}
	return c.JSON(http.StatusCreated, map[string]any{"user": user})
}

// SignIn handles POST /auth/signin: request a magic link. The response is
// identical whether or not the address has an account.
func (h *AuthHandler) SignIn(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_input", "Email is required"))
	}

	if err := h.auth.SendMagicLink(c.Request().Context(), email); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "sign-in failed")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "If that email has an account, a sign-in link is on its way",
	})
}

// Magic handles GET /auth/magic: the link from the sign-in email.
func (h *AuthHandler) Magic(c echo.Context) error {
	rawToken := c.QueryParam("token")
	email := c.QueryParam("email")

	user, err := h.auth.VerifyMagicLink(c.Request().Context(), rawToken, email)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "This sign-in link is invalid or has expired"))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "sign-in failed")
	}

	if err := h.sessions.SetUser(c, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session failed")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// VerifyEmail handles GET /auth/verify: the link from the verification
// email.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	rawToken := c.QueryParam("token")
	email := c.QueryParam("email")

	if err := h.auth.VerifyEmail(c.Request().Context(), rawToken, email); err != nil {
		if errors.Is(err, authsvc.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "This verification link is invalid or has expired"))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "verification failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Email verified"})
}

// ResendVerification handles POST /auth/resend-verification for the signed-in
// user.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	user := authctx.GetUser(c.Request().Context())

	if err := h.auth.ResendVerification(c.Request().Context(), user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not send verification email")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Verification email sent"})
}

// SignOut handles POST /auth/signout.
func (h *AuthHandler) SignOut(c echo.Context) error {
	h.sessions.Clear(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Signed out"})
}
