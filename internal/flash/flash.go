// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package flash carries one-shot alert messages across a redirect in a
// signed and encrypted cookie.
package flash

import (
	"crypto/sha256"
	"net/http"
	"time"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

const (
	cookieName = "flash"
	maxAge     = 5 * time.Minute
)

// alerts maps the ?alert= query values to message IDs.
var alerts = map[string]string{
	"booking": "booking_success",
}

// Store reads and writes flash cookies.
type Store struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// New derives the cookie keys from secret.
func New(secret string, secure bool) *Store {
	hashKey := sha256.Sum256([]byte("flash-hash:" + secret))
	blockKey := sha256.Sum256([]byte("flash-block:" + secret))
	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.MaxAge(int(maxAge.Seconds()))
	return &Store{codec: codec, secure: secure}
}

// Set stores message for the next page render.
func (s *Store) Set(c echo.Context, message string) error {
	encoded, err := s.codec.Encode(cookieName, message)
	if err != nil {
		return err
	}
	c.SetCookie(s.cookie(encoded, int(maxAge.Seconds())))
	return nil
}

// Pop returns the pending message and clears the cookie.
func (s *Store) Pop(c echo.Context) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	c.SetCookie(s.cookie("", -1))

	var message string
	if err := s.codec.Decode(cookieName, cookie.Value, &message); err != nil {
		return ""
	}
	return message
}

func (s *Store) cookie(value string, age int) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   age,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Middleware makes the pending alert available to templates. A known
// ?alert= query value takes precedence over the cookie.
func (s *Store) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			message := s.Pop(c)
			if id, ok := alerts[c.QueryParam("alert")]; ok {
				message = i18n.T(c.Request().Context(), id)
			}
			if message != "" {
				c.SetRequest(c.Request().WithContext(appcontext.WithFlash(c.Request().Context(), message)))
			}
			return next(c)
		}
	}
}
