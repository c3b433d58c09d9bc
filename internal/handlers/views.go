// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/templates"
	"github.com/labstack/echo/v4"
)

// Overview renders all tours.
func (h *Handlers) Overview(c echo.Context) error {
	tours, err := h.repo.ListTours(c.Request().Context(), repository.ListParams{})
	if err != nil {
		return err
	}
	return Render(c, http.StatusOK, templates.Overview(i18n.T(c.Request().Context(), "all_tours_title"), tours))
}

// TourPage renders a tour with its guides and reviews.
func (h *Handlers) TourPage(c echo.Context) error {
	ctx := c.Request().Context()
	tour, err := h.repo.GetTourBySlug(ctx, c.Param("slug"))
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("There is no tour with that name.")
	}
	if err != nil {
		return err
	}

	reviews, err := h.repo.ListReviews(ctx, withFilter(repository.ListParams{}, "tour", strconv.FormatInt(tour.ID, 10)))
	if err != nil {
		return err
	}
	guides, err := h.repo.ListTourGuides(ctx, tour.ID)
	if err != nil {
		return err
	}
	return Render(c, http.StatusOK, templates.Tour(templates.TourData{Tour: tour, Reviews: reviews, Guides: guides}))
}

// LoginPage renders the login form.
func (h *Handlers) LoginPage(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Login())
}

// AccountPage renders the settings of the current user.
func (h *Handlers) AccountPage(c echo.Context) error {
	user := appcontext.CurrentUser(c)
	if user == nil {
		return apperror.Unauthenticated()
	}
	return Render(c, http.StatusOK, templates.Account(user))
}

// MyTours renders the tours the current user has booked.
func (h *Handlers) MyTours(c echo.Context) error {
	user := appcontext.CurrentUser(c)
	if user == nil {
		return apperror.Unauthenticated()
	}
	ctx := c.Request().Context()
	tours, err := h.repo.ListBookedTours(ctx, user.ID)
	if err != nil {
		return err
	}
	return Render(c, http.StatusOK, templates.Overview(i18n.T(ctx, "my_tours_title"), tours))
}

// SubmitUserData handles the account form and redirects back to it.
func (h *Handlers) SubmitUserData(c echo.Context) error {
	if _, err := h.updateProfile(c); err != nil {
		return err
	}
	h.setFlash(c, "flash_data_updated")
	return c.Redirect(http.StatusSeeOther, "/me")
}
