// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviews_RecalculateRatings(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	tour := testutil.NewTestTour(t, repo, "The Forest Hiker", 397)
	alice := testutil.NewTestUser(t, repo, "alice@example.com", models.RoleUser)
	bob := testutil.NewTestUser(t, repo, "bob@example.com", models.RoleUser)

	first := &models.Review{Review: "Loved it", Rating: 5, TourID: tour.ID, UserID: alice.ID}
	require.NoError(t, repo.CreateReview(ctx, first))
	require.NoError(t, repo.CreateReview(ctx, &models.Review{Review: "Okay", Rating: 2, TourID: tour.ID, UserID: bob.ID}))

	got, err := repo.GetTourByID(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RatingsQuantity)
	assert.InDelta(t, 3.5, got.RatingsAverage, 0.001)

	first.Rating = 4
	require.NoError(t, repo.UpdateReview(ctx, first))
	got, err = repo.GetTourByID(ctx, tour.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got.RatingsAverage, 0.001)

	reviews, err := repo.ListReviews(ctx, repository.ListParams{Filters: []repository.Filter{{Field: "tour", Op: "eq", Value: "1"}}})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.NotEmpty(t, reviews[0].UserName)

	for _, r := range reviews {
		require.NoError(t, repo.DeleteReview(ctx, r.ID))
	}
	got, err = repo.GetTourByID(ctx, tour.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RatingsQuantity)
	assert.InDelta(t, models.DefaultRatingsAverage, got.RatingsAverage, 0.001)
}

func TestCreateReview_OnePerUserAndTour(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	tour := testutil.NewTestTour(t, repo, "The Sea Explorer", 497)
	user := testutil.NewTestUser(t, repo, "u@example.com", models.RoleUser)

	require.NoError(t, repo.CreateReview(ctx, &models.Review{Review: "A", Rating: 5, TourID: tour.ID, UserID: user.ID}))
	err := repo.CreateReview(ctx, &models.Review{Review: "B", Rating: 1, TourID: tour.ID, UserID: user.ID})

	var dupErr *repository.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "tour_id, user_id", dupErr.Field)
}

func TestDeleteReview_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.ErrorIs(t, repo.DeleteReview(context.Background(), 42), repository.ErrNotFound)
}
