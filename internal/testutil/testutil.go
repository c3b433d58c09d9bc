// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/tourbook/tourbook/internal/database"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of users created by NewTestUser.
const TestPassword = "test1234"

var (
	hashOnce sync.Once
	testHash string
)

// PasswordHash returns a cached low-cost bcrypt hash of TestPassword.
func PasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		testHash = string(h)
	})
	return testHash
}

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T, opts ...repository.Option) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db, opts...)
	return db, repo
}

// NewTestUser creates a test user with TestPassword in the database.
func NewTestUser(t *testing.T, repo *repository.Repository, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test " + string(role),
		Email:        email,
		Role:         role,
		PasswordHash: PasswordHash(t),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewTestTour creates a valid tour with the given name.
func NewTestTour(t *testing.T, repo *repository.Repository, name string, price float64) *models.Tour {
	t.Helper()
	start := time.Date(2031, time.June, 1, 9, 0, 0, 0, time.UTC)
	tour := &models.Tour{
		Name:         name,
		Duration:     5,
		MaxGroupSize: 10,
		Difficulty:   models.DifficultyEasy,
		Price:        price,
		Summary:      fmt.Sprintf("Summary of %s", name),
		ImageCover:   "cover.jpg",
		StartDate:    &start,
	}
	require.NoError(t, tour.Validate())
	require.NoError(t, repo.CreateTour(context.Background(), tour))
	return tour
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
