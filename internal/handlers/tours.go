// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"github.com/labstack/echo/v4"
)

// Tours is the CRUD resource for tours.
func (h *Handlers) Tours() Resource[models.Tour, *models.Tour] {
	return Resource[models.Tour, *models.Tour]{
		List:   h.repo.ListTours,
		Get:    h.repo.GetTourByID,
		Create: h.repo.CreateTour,
		Update: h.repo.UpdateTour,
		Delete: h.repo.DeleteTour,
		SetID:  func(t *models.Tour, id int64) { t.ID = id },
	}
}

// Reviews is the CRUD resource for reviews. Mounted below a tour it is
// scoped to the :tourId path parameter.
func (h *Handlers) Reviews() Resource[models.Review, *models.Review] {
	return Resource[models.Review, *models.Review]{
		List:    h.repo.ListReviews,
		Get:     h.repo.GetReviewByID,
		Create:  h.repo.CreateReview,
		Update:  h.repo.UpdateReview,
		Delete:  h.repo.DeleteReview,
		Scope:   scopeToTour,
		Prepare: setTourUserIDs,
		SetID:   func(r *models.Review, id int64) { r.ID = id },
	}
}

// Bookings is the CRUD resource for bookings.
func (h *Handlers) Bookings() Resource[models.Booking, *models.Booking] {
	return Resource[models.Booking, *models.Booking]{
		List:   h.repo.ListBookings,
		Get:    h.repo.GetBookingByID,
		Create: h.repo.CreateBooking,
		Update: h.repo.UpdateBooking,
		Delete: h.repo.DeleteBooking,
		SetID:  func(b *models.Booking, id int64) { b.ID = id },
	}
}

func scopeToTour(c echo.Context, p repository.ListParams) (repository.ListParams, error) {
	if c.Param("tourId") == "" {
		return p, nil
	}
	tourID, err := pathID(c, "tourId")
	if err != nil {
		return p, err
	}
	return withFilter(p, "tour", strconv.FormatInt(tourID, 10)), nil
}

// setTourUserIDs defaults the tour to the :tourId path parameter and the
// author to the current user.
func setTourUserIDs(c echo.Context, r *models.Review) error {
	if r.TourID == 0 && c.Param("tourId") != "" {
		tourID, err := pathID(c, "tourId")
		if err != nil {
			return err
		}
		r.TourID = tourID
	}
	if r.UserID == 0 {
		if user := appcontext.CurrentUser(c); user != nil {
			r.UserID = user.ID
		}
	}
	return nil
}

// AliasTopTours rewrites the query to the five best rated cheap tours.
func AliasTopTours(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParams()
		q.Set("limit", "5")
		q.Set("sort", "-ratingsAverage,price")
		c.Request().URL.RawQuery = q.Encode()
		return next(c)
	}
}

// TourStats returns aggregates per difficulty of well rated tours.
func (h *Handlers) TourStats(c echo.Context) error {
	stats, err := h.repo.TourStats(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, map[string]any{"stats": stats})
}

type guidesRequest struct {
	Guides []int64 `json:"guides"`
}

// SetTourGuides replaces the guides of a tour. Every id must belong to a
// guide or lead guide.
func (h *Handlers) SetTourGuides(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.repo.GetTourByID(ctx, id); err != nil {
		return err
	}

	var req guidesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	for _, uid := range req.Guides {
		user, err := h.repo.GetUserByID(ctx, uid)
		if err != nil {
			return err
		}
		if user.Role != models.RoleGuide && user.Role != models.RoleLeadGuide {
			return apperror.BadRequest("User " + strconv.FormatInt(uid, 10) + " is not a guide")
		}
	}
	if err := h.repo.SetTourGuides(ctx, id, req.Guides); err != nil {
		return err
	}

	guides, err := h.repo.ListTourGuides(ctx, id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, map[string]any{"guides": guides})
}
