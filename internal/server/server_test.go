// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"codeberg.org/tourbook/tourbook/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type app struct {
	e      *echo.Echo
	repo   *repository.Repository
	tokens *token.Service
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env: config.EnvDevelopment,
		Server: config.ServerConfig{
			Host:        "localhost",
			Port:        3000,
			BaseURL:     "http://localhost:3000",
			MaxBodySize: "10K",
			MaxPhotoMB:  1,
		},
		JWT: config.JWTConfig{
			Secret:           "0123456789abcdef0123456789abcdef",
			ExpiresIn:        time.Hour,
			CookieExpiryDays: 1,
			CookieName:       "jwt",
		},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Hour},
		Storage: config.StorageConfig{
			Backend:   "local",
			LocalDir:  t.TempDir(),
			PublicURL: "/img/users",
		},
	}
}

func newApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	require.NoError(t, i18n.Init())
	_, repo := testutil.NewTestDB(t)

	e, err := New(context.Background(), cfg, repo)
	require.NoError(t, err)
	return &app{e: e, repo: repo, tokens: token.NewService(&cfg.JWT, false)}
}

func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) bearer(t *testing.T, user *models.User, req *http.Request) *http.Request {
	t.Helper()
	signed, err := a.tokens.Issue(user.ID)
	require.NoError(t, err)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	return req
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRoutes_UnknownAPIRoute(t *testing.T) {
	a := newApp(t, testConfig(t))

	rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/nowhere?x=1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Can't find /api/v1/nowhere?x=1 on the server", message(t, rec))
}

func TestRoutes_UnknownPage(t *testing.T) {
	a := newApp(t, testConfig(t))

	rec := a.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
}

func TestRoutes_PublicTours(t *testing.T) {
	a := newApp(t, testConfig(t))
	testutil.NewTestTour(t, a.repo, "The Forest Hiker", 397)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/tours/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The Forest Hiker")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRoutes_ProtectedAndRestricted(t *testing.T) {
	a := newApp(t, testConfig(t))
	user := testutil.NewTestUser(t, a.repo, "user@example.com", models.RoleUser)
	lead := testutil.NewTestUser(t, a.repo, "lead@example.com", models.RoleLeadGuide)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You are not logged in! Please log in to get access.", message(t, rec))

	rec = a.do(a.bearer(t, user, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@example.com")

	body := `{"name":"The Snow Adventurer","duration":4,"maxGroupSize":10,"difficulty":"difficult","price":997,"summary":"Snow","imageCover":"c.jpg"}`
	rec = a.do(a.bearer(t, user, testutil.NewRequest(http.MethodPost, "/api/v1/tours", strings.NewReader(body))))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(a.bearer(t, lead, testutil.NewRequest(http.MethodPost, "/api/v1/tours", strings.NewReader(body))))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(a.bearer(t, lead, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutes_ReviewsOnlyByUsers(t *testing.T) {
	a := newApp(t, testConfig(t))
	admin := testutil.NewTestUser(t, a.repo, "admin@example.com", models.RoleAdmin)
	tour := testutil.NewTestTour(t, a.repo, "The Forest Hiker", 397)

	req := testutil.NewRequest(http.MethodPost, "/api/v1/tours/"+strconv.FormatInt(tour.ID, 10)+"/reviews", strings.NewReader(`{"review":"Great","rating":5}`))
	rec := a.do(a.bearer(t, admin, req))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutes_AccountPageRequiresLogin(t *testing.T) {
	a := newApp(t, testConfig(t))

	rec := a.do(httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "You are not logged in!")
}

func TestRoutes_SessionCookieFlags(t *testing.T) {
	for _, env := range []string{config.EnvProduction, config.EnvDevelopment} {
		t.Run(env, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Env = env
			a := newApp(t, cfg)
			testutil.NewTestUser(t, a.repo, "user@example.com", models.RoleUser)

			requests := map[string]*http.Request{
				"signup": testutil.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(
					`{"name":"Laura Wilson","email":"laura@example.com","password":"pass1234word","passwordConfirm":"pass1234word"}`)),
				"login": testutil.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(
					`{"email":"user@example.com","password":"`+testutil.TestPassword+`"}`)),
				"logout": httptest.NewRequest(http.MethodGet, "/api/v1/users/logout", nil),
			}
			for name, req := range requests {
				rec := a.do(req)
				require.Less(t, rec.Code, http.StatusBadRequest, name)

				var session *http.Cookie
				for _, c := range rec.Result().Cookies() {
					if c.Name == cfg.JWT.CookieName {
						session = c
					}
				}
				require.NotNil(t, session, name)
				assert.True(t, session.HttpOnly, name)
				assert.Equal(t, env == config.EnvProduction, session.Secure, name)
			}
		})
	}
}

func TestRoutes_CheckoutWebhook(t *testing.T) {
	cfg := testConfig(t)
	cfg.Payment = config.PaymentConfig{
		Provider:            "stripe",
		StripeSecretKey:     "sk_test_123",
		StripeWebhookSecret: testutil.StripeWebhookSecret,
	}
	a := newApp(t, cfg)
	user := testutil.NewTestUser(t, a.repo, "buyer@example.com", models.RoleUser)
	tour := testutil.NewTestTour(t, a.repo, "The Forest Hiker", 397)

	// larger than the JSON body limit and carrying a key the sanitizer drops
	payload := testutil.CheckoutCompletedEvent("cs_test_1", tour.ID, user.Email, 39700)
	payload = append(payload[:len(payload)-2], []byte(`,"metadata":{"$note":"`+strings.Repeat("x", 11*1024)+`"}}`)...)
	req := testutil.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", testutil.StripeSignature(payload, testutil.StripeWebhookSecret))

	rec := a.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bookings, err := a.repo.ListBookings(context.Background(), repository.ListParams{})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "cs_test_1", bookings[0].SessionID)

	req = testutil.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec = a.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiddleware_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Requests = 2
	a := newApp(t, cfg)

	for range 2 {
		rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, rateLimitMessage, message(t, rec))

	// pages are not rate limited
	rec = a.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_BodyLimit(t *testing.T) {
	a := newApp(t, testConfig(t))
	body := `{"email":"` + strings.Repeat("a", 11*1024) + `"}`

	rec := a.do(testutil.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMiddleware_SanitizesJSON(t *testing.T) {
	a := newApp(t, testConfig(t))

	rec := a.do(testutil.NewRequest(http.MethodPost, "/api/v1/users/login",
		strings.NewReader(`{"email":{"$gt":""},"password":"test1234"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhotoCacheHeaders(t *testing.T) {
	e := echo.New()
	e.Use(photoCacheHeaders("/img/users"))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/img/users/*", ok)
	e.GET("/img/tours/*", ok)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/img/users/user-1.jpg", nil))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/img/tours/tour-1.jpg", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestNewLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHandler(&buf, "warn", "json")

	assert.False(t, h.Enabled(context.Background(), -4))
	assert.True(t, h.Enabled(context.Background(), 4))
}
