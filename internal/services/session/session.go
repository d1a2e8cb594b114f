// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session manages the signed session cookie that carries the
// authenticated user id.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"

	"github.com/millwardesque/parkbench/internal/config"
)

const userIDKey = "user_id"

// Manager encodes and decodes the session cookie with securecookie. The
// hash key signs the cookie; the optional block key additionally encrypts
// it.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewManager creates a session manager from configuration. Missing keys are
// generated, which keeps development easy but means sessions do not survive
// a restart; production configures explicit keys.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := keyFromHex(cfg.HashKey, "session hash key")
	if err != nil {
		return nil, err
	}

	var blockKey []byte
	if cfg.BlockKey != "" {
		blockKey, err = keyFromHex(cfg.BlockKey, "session block key")
		if err != nil {
			return nil, err
		}
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     time.Duration(cfg.MaxAge) * time.Second,
		secure:     secure,
	}, nil
}

// SetUser writes a session cookie identifying the user.
func (m *Manager) SetUser(c echo.Context, userID int64) error {
	encoded, err := m.codec.Encode(m.cookieName, map[string]int64{userIDKey: userID})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// UserID returns the authenticated user id from the session cookie, or
// false when there is no valid session.
func (m *Manager) UserID(c echo.Context) (int64, bool) {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil {
		return 0, false
	}

	values := make(map[string]int64)
	if err := m.codec.Decode(m.cookieName, cookie.Value, &values); err != nil {
		return 0, false
	}

	userID, ok := values[userIDKey]
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}

// Clear removes the session cookie.
func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func keyFromHex(value, name string) ([]byte, error) {
	if value == "" {
		slog.Warn("generating ephemeral key, sessions will not survive restarts", "key", name)
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate %s: %w", name, err)
		}
		return key, nil
	}

	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}
