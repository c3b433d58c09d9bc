// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Name: "Test User", Email: "test@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, user))

	assert.NotZero(t, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, models.DefaultPhoto, user.Photo)
	assert.True(t, user.Active)
	assert.NotZero(t, user.CreatedAt)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "dup@example.com", models.RoleUser)

	err := repo.CreateUser(ctx, &models.User{Name: "Other", Email: "dup@example.com", PasswordHash: "hash"})

	var dupErr *repository.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "email", dupErr.Field)
	assert.Equal(t, "dup@example.com", dupErr.Value)
}

func TestGetUserByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "a@example.com", models.RoleGuide)

	retrieved, err := repo.GetUserByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, models.RoleGuide, retrieved.Role)
	assert.Equal(t, created.PasswordHash, retrieved.PasswordHash)
	assert.Nil(t, retrieved.PasswordChangedAt)
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByID(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeactivateUser_HidesUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "gone@example.com", models.RoleUser)
	require.NoError(t, repo.DeactivateUser(ctx, user.ID))

	_, err := repo.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetUserByEmail(ctx, "gone@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPasswordResetToken_RoundTrip(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reset@example.com", models.RoleUser)
	expires := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	require.NoError(t, repo.SetPasswordResetToken(ctx, user.ID, "abc123", expires))

	found, err := repo.GetUserByResetToken(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	require.NotNil(t, found.PasswordResetExpires)
	assert.True(t, expires.Equal(*found.PasswordResetExpires))

	changed := time.Now().Truncate(time.Second)
	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "newhash", changed))

	_, err = repo.GetUserByResetToken(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	reloaded, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", reloaded.PasswordHash)
	require.NotNil(t, reloaded.PasswordChangedAt)
	assert.Equal(t, changed.Unix(), reloaded.PasswordChangedAt.Unix())
	assert.Nil(t, reloaded.PasswordResetToken)
}

func TestClearPasswordResetToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "clear@example.com", models.RoleUser)
	require.NoError(t, repo.SetPasswordResetToken(ctx, user.ID, "tok", time.Now().Add(time.Minute)))
	require.NoError(t, repo.ClearPasswordResetToken(ctx, user.ID))

	_, err := repo.GetUserByResetToken(ctx, "tok")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListUsers_SortAndPaginate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "c@example.com", models.RoleUser)
	testutil.NewTestUser(t, repo, "a@example.com", models.RoleAdmin)
	testutil.NewTestUser(t, repo, "b@example.com", models.RoleUser)

	users, err := repo.ListUsers(ctx, repository.ListParams{Sort: []string{"email"}, Limit: 2, Page: 1})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, "b@example.com", users[1].Email)

	users, err = repo.ListUsers(ctx, repository.ListParams{Sort: []string{"email"}, Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "c@example.com", users[0].Email)

	admins, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)
}
