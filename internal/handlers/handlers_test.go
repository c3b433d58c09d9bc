// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/flash"
	"codeberg.org/tourbook/tourbook/internal/handlers"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/auth"
	"codeberg.org/tourbook/tourbook/internal/services/email"
	"codeberg.org/tourbook/tourbook/internal/services/payment"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"codeberg.org/tourbook/tourbook/internal/storage"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	e        *echo.Echo
	h        *handlers.Handlers
	repo     *repository.Repository
	tokens   *token.Service
	mailer   *email.Recorder
	clock    *testutil.Clock
	photoDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, i18n.Init())
	clock := testutil.NewClock(time.Date(2030, time.March, 1, 12, 0, 0, 0, time.UTC))
	_, repo := testutil.NewTestDB(t, repository.WithClock(clock.Now))
	tokens := token.NewService(&config.JWTConfig{
		Secret:           secret,
		ExpiresIn:        90 * 24 * time.Hour,
		CookieExpiryDays: 90,
		CookieName:       "jwt",
	}, false, token.WithClock(clock.Now))
	mailer := &email.Recorder{}
	photoDir := t.TempDir()
	photos, err := storage.NewLocal(photoDir)
	require.NoError(t, err)

	authSvc := auth.NewService(repo, tokens, mailer, "http://localhost:3000",
		auth.WithClock(clock.Now), auth.WithBcryptCost(bcrypt.MinCost))

	h := handlers.New(handlers.Deps{
		Repo:     repo,
		Auth:     authSvc,
		Tokens:   tokens,
		Payments: payment.NewLocal(repo),
		Photos:   photos,
		Flash:    flash.New(secret, false),
		BaseURL:  "http://localhost:3000/",
		Now:      clock.Now,
	})

	e := echo.New()
	e.HTTPErrorHandler = handlers.NewErrorHandler(false).Handle
	return &fixture{e: e, h: h, repo: repo, tokens: tokens, mailer: mailer, clock: clock, photoDir: photoDir}
}

// call runs handler on a fresh context. params are name/value pairs.
func (f *fixture) call(handler echo.HandlerFunc, req *http.Request, user *models.User, params ...string) (*httptest.ResponseRecorder, error) {
	req = req.WithContext(i18n.WithLocale(req.Context(), language.English))
	rec := httptest.NewRecorder()
	c := appcontext.Wrap(f.e.NewContext(req, rec))
	if user != nil {
		appcontext.SetUser(c, user)
	}
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, handler(c)
}

func jsonRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return testutil.NewRequest(method, path, r)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec, err := f.call(f.h.Health, httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_DatabaseDown(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	require.NoError(t, db.Close())
	h := handlers.New(handlers.Deps{Repo: repo})

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
