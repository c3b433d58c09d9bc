// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestTour(t, f.repo, "The Forest Hiker", 397)

	rec, err := f.call(f.h.Overview, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "The Forest Hiker")
}

func TestTourPage(t *testing.T) {
	f := newFixture(t)
	tour := testutil.NewTestTour(t, f.repo, "The Forest Hiker", 397)
	user := testutil.NewTestUser(t, f.repo, "user@example.com", models.RoleUser)
	guide := testutil.NewTestUser(t, f.repo, "guide@example.com", models.RoleLeadGuide)
	require.NoError(t, f.repo.SetTourGuides(context.Background(), tour.ID, []int64{guide.ID}))
	require.NoError(t, f.repo.CreateReview(context.Background(), &models.Review{
		Review: "Breathtaking views", Rating: 5, TourID: tour.ID, UserID: user.ID,
	}))

	rec, err := f.call(f.h.TourPage, httptest.NewRequest(http.MethodGet, "/tour/"+tour.Slug, nil), nil, "slug", tour.Slug)

	require.NoError(t, err)
	body := rec.Body.String()
	assert.Contains(t, body, "The Forest Hiker tour")
	assert.Contains(t, body, "Breathtaking views")
	assert.Contains(t, body, guide.Name)
}

func TestTourPage_UnknownSlug(t *testing.T) {
	f := newFixture(t)

	_, err := f.call(f.h.TourPage, httptest.NewRequest(http.MethodGet, "/tour/nowhere", nil), nil, "slug", "nowhere")

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	assert.Equal(t, "There is no tour with that name.", appErr.Message)
}

func TestAccountPage(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "user@example.com", models.RoleUser)

	rec, err := f.call(f.h.AccountPage, httptest.NewRequest(http.MethodGet, "/me", nil), user)
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "user@example.com")

	_, err = f.call(f.h.AccountPage, httptest.NewRequest(http.MethodGet, "/me", nil), nil)
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
}

func TestMyTours(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "user@example.com", models.RoleUser)
	booked := testutil.NewTestTour(t, f.repo, "The Forest Hiker", 397)
	testutil.NewTestTour(t, f.repo, "The Sea Explorer", 497)
	require.NoError(t, f.repo.CreateBooking(context.Background(), &models.Booking{
		TourID: booked.ID, UserID: user.ID, Price: booked.Price, Paid: true,
	}))

	rec, err := f.call(f.h.MyTours, httptest.NewRequest(http.MethodGet, "/my-tours", nil), user)

	require.NoError(t, err)
	body := rec.Body.String()
	assert.Contains(t, body, "The Forest Hiker")
	assert.NotContains(t, body, "The Sea Explorer")
}

func TestSubmitUserData(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "user@example.com", models.RoleUser)
	form := url.Values{"name": {"Jonas Schmedtmann"}, "email": {"user@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/submit-user-data", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, err := f.call(f.h.SubmitUserData, req, user)

	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/me", rec.Header().Get("Location"))
	saved, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jonas Schmedtmann", saved.Name)
}
