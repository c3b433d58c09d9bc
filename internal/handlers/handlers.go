// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strings"
	"time"

	"codeberg.org/tourbook/tourbook/internal/flash"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/auth"
	"codeberg.org/tourbook/tourbook/internal/services/payment"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"codeberg.org/tourbook/tourbook/internal/storage"
	"github.com/labstack/echo/v4"
)

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Repo          *repository.Repository
	Auth          *auth.Service
	Tokens        *token.Service
	Payments      payment.Provider
	Photos        storage.PhotoStore
	Flash         *flash.Store
	BaseURL       string
	MaxPhotoBytes int64
	Now           func() time.Time
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo          *repository.Repository
	auth          *auth.Service
	tokens        *token.Service
	payments      payment.Provider
	photos        storage.PhotoStore
	flash         *flash.Store
	baseURL       string
	maxPhotoBytes int64
	now           func() time.Time
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	h := &Handlers{
		repo:          d.Repo,
		auth:          d.Auth,
		tokens:        d.Tokens,
		payments:      d.Payments,
		photos:        d.Photos,
		flash:         d.Flash,
		baseURL:       strings.TrimSuffix(d.BaseURL, "/"),
		maxPhotoBytes: d.MaxPhotoBytes,
		now:           d.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.maxPhotoBytes <= 0 {
		h.maxPhotoBytes = 5 << 20
	}
	return h
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.repo != nil {
		if err := h.repo.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
