// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment_test

import (
	"context"
	"strings"
	"testing"

	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/payment"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_CreateCheckoutSession(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "buyer@example.com", models.RoleUser)
	tour := testutil.NewTestTour(t, repo, "The Forest Hiker", 397)
	ctx := context.Background()

	provider := payment.NewLocal(repo)
	sess, err := provider.CreateCheckoutSession(ctx, tour, user, "https://tours.example.com/?alert=booking", "https://tours.example.com/tour/the-forest-hiker")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sess.ID, "cs_"))
	assert.Equal(t, "https://tours.example.com/?alert=booking", sess.URL)
	assert.Equal(t, tour.ID, sess.ClientReferenceID)
	assert.Equal(t, "buyer@example.com", sess.CustomerEmail)
	assert.InDelta(t, 397.0, sess.AmountTotal, 0.001)

	bookings, err := repo.ListBookings(ctx, repository.ListParams{})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, sess.ID, bookings[0].SessionID)
	assert.True(t, bookings[0].Paid)
	assert.Equal(t, user.ID, bookings[0].UserID)
}

func TestLocal_SessionsAreUnique(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "buyer@example.com", models.RoleUser)
	tour := testutil.NewTestTour(t, repo, "The Sea Explorer", 497)

	provider := payment.NewLocal(repo)
	a, err := provider.CreateCheckoutSession(context.Background(), tour, user, "/", "/")
	require.NoError(t, err)
	b, err := provider.CreateCheckoutSession(context.Background(), tour, user, "/", "/")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
