// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/middleware"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   *repository.Repository
	clock  *testutil.Clock
	tokens *token.Service
	auth   *middleware.Auth
	user   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	clock := testutil.NewClock(time.Now().Truncate(time.Second))
	tokens := token.NewService(&config.JWTConfig{
		Secret:           "0123456789abcdef0123456789abcdef",
		ExpiresIn:        time.Hour,
		CookieExpiryDays: 1,
		CookieName:       "jwt",
	}, false, token.WithClock(clock.Now))

	return &fixture{
		repo:   repo,
		clock:  clock,
		tokens: tokens,
		auth:   middleware.NewAuth(tokens, repo),
		user:   testutil.NewTestUser(t, repo, "user@example.com", models.RoleUser),
	}
}

func (f *fixture) issue(t *testing.T, id int64) string {
	t.Helper()
	signed, err := f.tokens.Issue(id)
	require.NoError(t, err)
	return signed
}

// run passes a request through mw and reports the error and the user seen by the handler.
func run(mw echo.MiddlewareFunc, req *http.Request) (*models.User, bool, error) {
	e := echo.New()
	c := appcontext.Wrap(e.NewContext(req, httptest.NewRecorder()))

	var seen *models.User
	called := false
	err := mw(func(c echo.Context) error {
		called = true
		seen = appcontext.CurrentUser(c)
		return nil
	})(c)
	return seen, called, err
}

func bearer(tok string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	return req
}

func withCookie(tok string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: tok})
	return req
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected apperror, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
}

func TestProtect_NoCredential(t *testing.T) {
	f := newFixture(t)

	_, called, err := run(f.auth.Protect(), httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

	assertKind(t, err, apperror.KindUnauthenticated)
	assert.False(t, called)
}

func TestProtect_BearerAndCookie(t *testing.T) {
	f := newFixture(t)
	tok := f.issue(t, f.user.ID)

	for name, req := range map[string]*http.Request{"bearer": bearer(tok), "cookie": withCookie(tok)} {
		t.Run(name, func(t *testing.T) {
			seen, called, err := run(f.auth.Protect(), req)

			require.NoError(t, err)
			require.True(t, called)
			require.NotNil(t, seen)
			assert.Equal(t, f.user.ID, seen.ID)
		})
	}
}

func TestProtect_InvalidAndExpired(t *testing.T) {
	f := newFixture(t)

	_, _, err := run(f.auth.Protect(), bearer("garbage"))
	assertKind(t, err, apperror.KindInvalidToken)

	_, _, err = run(f.auth.Protect(), withCookie(token.LoggedOutValue))
	assertKind(t, err, apperror.KindInvalidToken)

	tok := f.issue(t, f.user.ID)
	f.clock.Advance(2 * time.Hour)
	_, _, err = run(f.auth.Protect(), bearer(tok))
	assertKind(t, err, apperror.KindExpiredToken)
}

func TestProtect_UserGone(t *testing.T) {
	f := newFixture(t)
	tok := f.issue(t, f.user.ID)
	require.NoError(t, f.repo.DeactivateUser(context.Background(), f.user.ID))

	_, called, err := run(f.auth.Protect(), bearer(tok))

	assertKind(t, err, apperror.KindUserNotFound)
	assert.False(t, called)
}

func TestProtect_StaleToken(t *testing.T) {
	f := newFixture(t)
	tok := f.issue(t, f.user.ID)

	changed := f.clock.Now().Add(2 * time.Second)
	require.NoError(t, f.repo.UpdateUserPassword(context.Background(), f.user.ID, f.user.PasswordHash, changed))
	f.clock.Advance(3 * time.Second)

	_, called, err := run(f.auth.Protect(), bearer(tok))
	assertKind(t, err, apperror.KindStaleToken)
	assert.False(t, called)

	fresh := f.issue(t, f.user.ID)
	seen, _, err := run(f.auth.Protect(), bearer(fresh))
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, seen.ID)
}

func TestSoftChain(t *testing.T) {
	f := newFixture(t)
	tok := f.issue(t, f.user.ID)

	t.Run("valid cookie attaches user", func(t *testing.T) {
		seen, called, err := run(f.auth.IsLoggedIn(), withCookie(tok))
		require.NoError(t, err)
		assert.True(t, called)
		require.NotNil(t, seen)
		assert.Equal(t, f.user.ID, seen.ID)
	})

	t.Run("no cookie is anonymous", func(t *testing.T) {
		seen, called, err := run(f.auth.IsLoggedIn(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Nil(t, seen)
	})

	t.Run("bearer header is ignored", func(t *testing.T) {
		seen, called, err := run(f.auth.IsLoggedIn(), bearer(tok))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Nil(t, seen)
	})

	t.Run("invalid cookie is anonymous", func(t *testing.T) {
		seen, called, err := run(f.auth.IsLoggedIn(), withCookie(token.LoggedOutValue))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Nil(t, seen)
	})

	t.Run("stale token is anonymous", func(t *testing.T) {
		changed := f.clock.Now().Add(5 * time.Second)
		require.NoError(t, f.repo.UpdateUserPassword(context.Background(), f.user.ID, f.user.PasswordHash, changed))
		f.clock.Advance(10 * time.Second)

		seen, called, err := run(f.auth.IsLoggedIn(), withCookie(tok))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Nil(t, seen)
	})
}

func TestProtect_RoleGate(t *testing.T) {
	f := newFixture(t)
	admin := testutil.NewTestUser(t, f.repo, "admin@example.com", models.RoleAdmin)

	_, called, err := run(f.auth.Protect(models.RoleAdmin, models.RoleLeadGuide), bearer(f.issue(t, f.user.ID)))
	assertKind(t, err, apperror.KindForbidden)
	assert.False(t, called)

	seen, called, err := run(f.auth.Protect(models.RoleAdmin, models.RoleLeadGuide), bearer(f.issue(t, admin.ID)))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, models.RoleAdmin, seen.Role)
}

func TestRestrictTo(t *testing.T) {
	f := newFixture(t)
	chained := func(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			for i := len(mws) - 1; i >= 0; i-- {
				next = mws[i](next)
			}
			return next
		}
	}

	t.Run("without identity", func(t *testing.T) {
		_, called, err := run(middleware.RestrictTo(models.RoleUser), httptest.NewRequest(http.MethodGet, "/", nil))
		assertKind(t, err, apperror.KindUnauthenticated)
		assert.False(t, called)
	})

	t.Run("role in set", func(t *testing.T) {
		mw := chained(f.auth.Protect(), middleware.RestrictTo(models.RoleUser, models.RoleAdmin))
		seen, called, err := run(mw, bearer(f.issue(t, f.user.ID)))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, f.user.ID, seen.ID)
	})

	t.Run("role not in set", func(t *testing.T) {
		mw := chained(f.auth.Protect(), middleware.RestrictTo(models.RoleAdmin))
		_, called, err := run(mw, bearer(f.issue(t, f.user.ID)))
		assertKind(t, err, apperror.KindForbidden)
		assert.False(t, called)
	})
}

func TestChain_StagePrecondition(t *testing.T) {
	chain := middleware.NewChain(false, middleware.Authorize(models.RoleAdmin))

	_, called, err := run(chain.Middleware(), httptest.NewRequest(http.MethodGet, "/", nil))

	assertKind(t, err, apperror.KindUnauthenticated)
	assert.False(t, called)
}
