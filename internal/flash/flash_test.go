// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package flash_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/flash"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestSetAndPop(t *testing.T) {
	e := echo.New()
	store := flash.New(secret, false)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, store.Set(c, "Saved!"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, cookies[0].Value, "Saved!")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	assert.Equal(t, "Saved!", store.Pop(c))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestPop_RejectsForeignCookie(t *testing.T) {
	e := echo.New()
	issued := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), issued)
	require.NoError(t, flash.New("another-secret-another-secret-xx", false).Set(c, "hi"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued.Result().Cookies()[0])
	c = e.NewContext(req, httptest.NewRecorder())

	assert.Empty(t, flash.New(secret, false).Pop(c))
}

func TestMiddleware_AlertQuery(t *testing.T) {
	e := echo.New()
	store := flash.New(secret, false)

	req := httptest.NewRequest(http.MethodGet, "/?alert=booking", nil)
	require.NoError(t, i18n.Init())
	req = req.WithContext(i18n.WithLocale(req.Context(), language.English))
	c := e.NewContext(req, httptest.NewRecorder())

	var got string
	h := store.Middleware()(func(c echo.Context) error {
		got = appcontext.FlashFrom(c.Request().Context())
		return nil
	})
	require.NoError(t, h(c))

	assert.Equal(t, i18n.T(req.Context(), "booking_success"), got)
	assert.NotEmpty(t, got)
}
